package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopledger/internal/domain/product"
)

// closed reports whether err means the input stream or the session ended.
func closed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// readLine returns the next input line without its trailing newline.
func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// ask prints label and reads one line.
func (c *Console) ask(ctx context.Context, label string) (string, error) {
	c.printf("%s: ", label)
	return c.readLine(ctx)
}

// askRequired re-prompts until the answer is not empty.
func (c *Console) askRequired(ctx context.Context, label string) (string, error) {
	for {
		s, err := c.ask(ctx, label)
		if err != nil || s != "" {
			return s, err
		}
		c.println("A value is required.")
	}
}

// askPrice re-prompts until the answer is a positive decimal.
func (c *Console) askPrice(ctx context.Context, label string) (decimal.Decimal, error) {
	for {
		s, err := c.ask(ctx, label)
		if err != nil {
			return decimal.Zero, err
		}
		p, err := product.ParsePrice(s)
		if err == nil {
			return p, nil
		}
		c.println("The price must be a number greater than zero.")
	}
}

// askCount re-prompts until the answer is an integer >= least.
func (c *Console) askCount(ctx context.Context, label string, least int) (int, error) {
	for {
		s, err := c.ask(ctx, label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= least {
			return n, nil
		}
		c.printf("Enter a whole number of at least %d.\n", least)
	}
}

// askOptional returns nil when the answer is empty.
func (c *Console) askOptional(ctx context.Context, label string) (*string, error) {
	s, err := c.ask(ctx, label+" [Enter to skip]")
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

// askOptionalPrice returns nil when the answer is empty and re-prompts on an
// invalid price.
func (c *Console) askOptionalPrice(ctx context.Context, label string) (*decimal.Decimal, error) {
	for {
		s, err := c.ask(ctx, label+" [Enter to skip]")
		if err != nil || s == "" {
			return nil, err
		}
		p, err := product.ParsePrice(s)
		if err == nil {
			return &p, nil
		}
		c.println("The price must be a number greater than zero.")
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	_, _ = fmt.Fprintln(c.out, args...)
}
