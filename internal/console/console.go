// Package console is the interactive text menu of the application.
package console

import (
	"bufio"
	"context"
	"io"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/shopledger/internal/shop"
)

// Options configures a Console.
type Options struct {
	// Currency is printed after every amount.
	Currency string
	Logger   *zap.Logger
	Tracer   trace.TracerProvider
}

// Console reads menu choices and prompts from in and writes to out.
type Console struct {
	shop     *shop.Shop
	in       io.Reader
	out      io.Writer
	currency string
	lg       *zap.Logger
	handle   Handler

	lines chan string
}

// New creates a Console driving s.
func New(s *shop.Shop, in io.Reader, out io.Writer, opts Options) *Console {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider()
	}
	return &Console{
		shop:     s,
		in:       in,
		out:      out,
		currency: opts.Currency,
		lg:       opts.Logger,
		handle: Wrap(Run,
			Recovery(),
			CommandID(),
			Trace(opts.Tracer),
			LogCommands(),
		),
	}
}

// item is one menu entry: either a command or a submenu.
type item struct {
	key     string
	label   string
	command string
	run     Action
	sub     *menu
}

type menu struct {
	title string
	back  string
	items []item
}

// Run shows the main menu until the user quits, input ends, or ctx is done.
// Quitting and end of input are not errors.
func (c *Console) Run(ctx context.Context) error {
	ctx = zctx.Base(ctx, c.lg)

	done := make(chan struct{})
	defer close(done)
	c.lines = make(chan string)
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case c.lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	err := c.loop(ctx, c.mainMenu())
	if err != nil && !closed(err) {
		return err
	}
	if err == nil {
		c.println("Goodbye!")
	}
	return nil
}

func (c *Console) loop(ctx context.Context, m *menu) error {
	for {
		c.printf("\n--- %s ---\n", m.title)
		for _, it := range m.items {
			c.printf("%s. %s\n", it.key, it.label)
		}
		c.printf("0. %s\n", m.back)

		choice, err := c.ask(ctx, "Your choice")
		if err != nil {
			return err
		}
		if choice == "0" {
			return nil
		}

		it, ok := find(m.items, choice)
		switch {
		case !ok:
			c.println("Invalid choice.")
		case it.sub != nil:
			if err := c.loop(ctx, it.sub); err != nil {
				return err
			}
		default:
			if err := c.handle(ctx, it.command, it.run); err != nil {
				if closed(err) {
					return err
				}
				c.printf("Error: %v\n", err)
			}
		}
	}
}

func find(items []item, key string) (item, bool) {
	for _, it := range items {
		if it.key == key {
			return it, true
		}
	}
	return item{}, false
}

func (c *Console) mainMenu() *menu {
	return &menu{
		title: "Main Menu",
		back:  "Quit",
		items: []item{
			{key: "1", label: "Products", sub: c.productMenu()},
			{key: "2", label: "Clients", sub: c.clientMenu()},
			{key: "3", label: "Orders", sub: c.orderMenu()},
			{key: "4", label: "Stock movements", command: "stock.movements", run: c.listMovements},
			{key: "5", label: "Save data", command: "data.save", run: c.save},
			{key: "6", label: "Back up data", command: "data.backup", run: c.backup},
		},
	}
}

func (c *Console) productMenu() *menu {
	return &menu{
		title: "Products",
		back:  "Back",
		items: []item{
			{key: "1", label: "Add a product", command: "product.add", run: c.addProduct},
			{key: "2", label: "List products", command: "product.list", run: c.listProducts},
			{key: "3", label: "Search products", command: "product.search", run: c.searchProducts},
			{key: "4", label: "Edit a product", command: "product.edit", run: c.editProduct},
			{key: "5", label: "Remove a product", command: "product.remove", run: c.removeProduct},
		},
	}
}

func (c *Console) clientMenu() *menu {
	return &menu{
		title: "Clients",
		back:  "Back",
		items: []item{
			{key: "1", label: "Add a client", command: "client.add", run: c.addClient},
			{key: "2", label: "List clients", command: "client.list", run: c.listClients},
			{key: "3", label: "Search clients", command: "client.search", run: c.searchClients},
			{key: "4", label: "Edit a client", command: "client.edit", run: c.editClient},
			{key: "5", label: "Remove a client", command: "client.remove", run: c.removeClient},
		},
	}
}

func (c *Console) orderMenu() *menu {
	return &menu{
		title: "Orders",
		back:  "Back",
		items: []item{
			{key: "1", label: "Create an order", command: "order.create", run: c.createOrder},
			{key: "2", label: "Add a product to an order", command: "order.add_line", run: c.addLine},
			{key: "3", label: "List orders", command: "order.list", run: c.listOrders},
			{key: "4", label: "Validate an order", command: "order.validate", run: c.validateOrder},
			{key: "5", label: "Cancel an order", command: "order.cancel", run: c.cancelOrder},
			{key: "6", label: "Print an order receipt", command: "order.receipt", run: c.printReceipt},
		},
	}
}
