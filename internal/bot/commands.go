// internal/bot/commands.go
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpfun-bot/internal/config"
)

// ErrUsage означает неверные аргументы командной строки
var ErrUsage = errors.New("usage")

// TradingCommand представляет одну команду CLI
type TradingCommand interface {
	GetType() string
	Validate() error
}

// BuyCommand покупка токенов на SolIn SOL
type BuyCommand struct {
	Mint     solana.PublicKey
	SolIn    float64
	Slippage float64
}

func (c BuyCommand) GetType() string { return "buy" }

func (c BuyCommand) Validate() error {
	if c.SolIn <= 0 {
		return fmt.Errorf("sol amount must be positive, got: %v", c.SolIn)
	}
	if c.Slippage < 0 || c.Slippage > 100 {
		return fmt.Errorf("slippage must be between 0 and 100, got: %v", c.Slippage)
	}
	return nil
}

// SellCommand продажа процента баланса
type SellCommand struct {
	Mint       solana.PublicKey
	Percentage float64
	Slippage   float64
}

func (c SellCommand) GetType() string { return "sell" }

func (c SellCommand) Validate() error {
	if c.Percentage < 1 || c.Percentage > 100 {
		return fmt.Errorf("percentage must be between 1 and 100, got: %v", c.Percentage)
	}
	if c.Slippage < 0 || c.Slippage > 100 {
		return fmt.Errorf("slippage must be between 0 and 100, got: %v", c.Slippage)
	}
	return nil
}

// QuoteCommand только расчет, без отправки
type QuoteCommand struct {
	Mint  solana.PublicKey
	SolIn float64
}

func (c QuoteCommand) GetType() string { return "quote" }

func (c QuoteCommand) Validate() error {
	if c.SolIn <= 0 {
		return fmt.Errorf("sol amount must be positive, got: %v", c.SolIn)
	}
	return nil
}

const Usage = `usage:
  bot [-config path] buy <mint> [sol] [slippage]
  bot [-config path] sell <mint> [percentage] [slippage]
  bot [-config path] quote <mint> [sol]`

// ParseCommand builds a command from positional args. Omitted amounts fall
// back to the buy/sell sections of cfg.
func ParseCommand(args []string, cfg *config.Config) (TradingCommand, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: missing command or mint", ErrUsage)
	}

	name := strings.ToLower(args[0])
	mint, err := solana.PublicKeyFromBase58(args[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mint %q: %v", ErrUsage, args[1], err)
	}
	rest := args[2:]

	var cmd TradingCommand
	switch name {
	case "buy":
		c := BuyCommand{Mint: mint, SolIn: cfg.Buy.SolIn, Slippage: cfg.Buy.Slippage}
		if err := parseFloats(rest, 2, &c.SolIn, &c.Slippage); err != nil {
			return nil, err
		}
		cmd = c
	case "sell":
		c := SellCommand{Mint: mint, Percentage: cfg.Sell.Percentage, Slippage: cfg.Sell.Slippage}
		if err := parseFloats(rest, 2, &c.Percentage, &c.Slippage); err != nil {
			return nil, err
		}
		cmd = c
	case "quote":
		c := QuoteCommand{Mint: mint, SolIn: cfg.Buy.SolIn}
		if err := parseFloats(rest, 1, &c.SolIn); err != nil {
			return nil, err
		}
		cmd = c
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return cmd, nil
}

func parseFloats(args []string, max int, dst ...*float64) error {
	if len(args) > max {
		return fmt.Errorf("%w: too many arguments", ErrUsage)
	}
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrUsage, arg)
		}
		*dst[i] = v
	}
	return nil
}
