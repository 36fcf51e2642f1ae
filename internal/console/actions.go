package console

import (
	"context"
	"strconv"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/receipt"
)

func (c *Console) addProduct(ctx context.Context) error {
	name, err := c.askRequired(ctx, "Product name")
	if err != nil {
		return err
	}
	price, err := c.askPrice(ctx, "Unit price")
	if err != nil {
		return err
	}
	stock, err := c.askCount(ctx, "Initial stock", 0)
	if err != nil {
		return err
	}

	p, err := c.shop.AddProduct(name, price, stock)
	if err != nil {
		return err
	}
	c.printf("Product '%s' added (ref: %s).\n", p.Name, p.Reference)
	return nil
}

func (c *Console) listProducts(context.Context) error {
	c.printProducts(c.shop.Products())
	return nil
}

func (c *Console) searchProducts(ctx context.Context) error {
	term, err := c.askRequired(ctx, "Name or reference")
	if err != nil {
		return err
	}
	c.printProducts(c.shop.SearchProducts(term))
	return nil
}

func (c *Console) editProduct(ctx context.Context) error {
	ref, err := c.askRequired(ctx, "Reference of the product to edit")
	if err != nil {
		return err
	}
	p, err := c.shop.Product(ref)
	if err != nil {
		return err
	}

	name, err := c.askOptional(ctx, "New name (current: "+p.Name+")")
	if err != nil {
		return err
	}
	price, err := c.askOptionalPrice(ctx, "New price (current: "+c.money(p.UnitPrice)+")")
	if err != nil {
		return err
	}
	if name == nil && price == nil {
		c.println("Nothing changed.")
		return nil
	}

	if _, err := c.shop.EditProduct(ref, name, price); err != nil {
		return err
	}
	c.println("Product updated.")
	return nil
}

func (c *Console) removeProduct(ctx context.Context) error {
	ref, err := c.askRequired(ctx, "Reference of the product to remove")
	if err != nil {
		return err
	}
	if err := c.shop.RemoveProduct(ref); err != nil {
		return err
	}
	c.printf("Product %s removed.\n", ref)
	return nil
}

func (c *Console) addClient(ctx context.Context) error {
	var (
		cl  client.Client
		err error
	)
	if cl.LastName, err = c.askRequired(ctx, "Last name"); err != nil {
		return err
	}
	if cl.FirstName, err = c.ask(ctx, "First name"); err != nil {
		return err
	}
	if cl.Address, err = c.ask(ctx, "Address"); err != nil {
		return err
	}
	if cl.Phone, err = c.ask(ctx, "Phone (optional)"); err != nil {
		return err
	}
	if cl.Email, err = c.ask(ctx, "Email (optional)"); err != nil {
		return err
	}

	added, err := c.shop.AddClient(cl)
	if err != nil {
		return err
	}
	c.printf("Client %s added (ID: %s).\n", added.FullName(), added.ID)
	return nil
}

func (c *Console) listClients(context.Context) error {
	c.printClients(c.shop.Clients())
	return nil
}

func (c *Console) searchClients(ctx context.Context) error {
	term, err := c.askRequired(ctx, "Name or ID")
	if err != nil {
		return err
	}
	c.printClients(c.shop.SearchClients(term))
	return nil
}

func (c *Console) editClient(ctx context.Context) error {
	id, err := c.askRequired(ctx, "ID of the client to edit")
	if err != nil {
		return err
	}
	cl, err := c.shop.Client(id)
	if err != nil {
		return err
	}

	var ch client.Changes
	fields := []struct {
		label   string
		current string
		dst     **string
	}{
		{"Last name", cl.LastName, &ch.LastName},
		{"First name", cl.FirstName, &ch.FirstName},
		{"Address", cl.Address, &ch.Address},
		{"Phone", cl.Phone, &ch.Phone},
		{"Email", cl.Email, &ch.Email},
	}
	for _, f := range fields {
		v, err := c.askOptional(ctx, f.label+" (current: "+orDash(f.current)+")")
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if _, err := c.shop.EditClient(id, ch); err != nil {
		return err
	}
	c.println("Client updated.")
	return nil
}

func (c *Console) removeClient(ctx context.Context) error {
	id, err := c.askRequired(ctx, "ID of the client to remove")
	if err != nil {
		return err
	}
	if err := c.shop.RemoveClient(id); err != nil {
		return err
	}
	c.printf("Client %s removed.\n", id)
	return nil
}

func (c *Console) createOrder(ctx context.Context) error {
	id, err := c.askRequired(ctx, "Client ID")
	if err != nil {
		return err
	}
	o, err := c.shop.CreateOrder(ctx, id)
	if err != nil {
		return err
	}
	c.printf("Order %s created. Add products to it.\n", o.Number)
	return nil
}

func (c *Console) addLine(ctx context.Context) error {
	number, err := c.askRequired(ctx, "Order number")
	if err != nil {
		return err
	}
	o, err := c.shop.Order(number)
	if err != nil {
		return err
	}
	if o.Status != order.StatusOpen {
		return &order.NotOpenError{Number: o.Number, Status: o.Status}
	}

	ref, err := c.askRequired(ctx, "Product reference")
	if err != nil {
		return err
	}
	p, err := c.shop.Product(ref)
	if err != nil {
		return err
	}
	qty, err := c.askCount(ctx, "Quantity of "+p.Name+" (stock: "+strconv.Itoa(p.Stock)+")", 1)
	if err != nil {
		return err
	}

	if o, err = c.shop.AddLine(number, ref, qty); err != nil {
		return err
	}
	c.printf("%d x %s added to order %s. Total: %s\n", qty, p.Name, o.Number, c.money(o.Total))
	return nil
}

func (c *Console) listOrders(context.Context) error {
	orders := c.shop.Orders()
	if len(orders) == 0 {
		c.println("No orders recorded.")
		return nil
	}
	for _, r := range orders {
		if err := receipt.Render(c.out, r, c.currency); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) validateOrder(ctx context.Context) error {
	number, err := c.askRequired(ctx, "Order number to validate")
	if err != nil {
		return err
	}
	o, err := c.shop.Validate(ctx, number)
	if err != nil {
		return err
	}
	c.printf("Order %s validated. Stock updated.\n", o.Number)
	return nil
}

func (c *Console) cancelOrder(ctx context.Context) error {
	number, err := c.askRequired(ctx, "Order number to cancel")
	if err != nil {
		return err
	}
	res, err := c.shop.Cancel(ctx, number)
	if err != nil {
		return err
	}

	switch res.PreviousStatus {
	case order.StatusCancelled:
		c.printf("Order %s was already cancelled.\n", number)
	case order.StatusValidated:
		c.printf("Order %s cancelled. Stock restored for %d line(s).\n", number, len(res.Restored))
	default:
		c.printf("Order %s cancelled.\n", number)
	}
	for _, w := range res.Skipped {
		c.printf("Warning: %s\n", w)
	}
	return nil
}

func (c *Console) printReceipt(ctx context.Context) error {
	number, err := c.askRequired(ctx, "Order number for the receipt")
	if err != nil {
		return err
	}
	r, path, err := c.shop.Receipt(number)
	if r != nil {
		if rerr := receipt.Render(c.out, r, c.currency); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}
	if path != "" {
		c.printf("Receipt saved to %s\n", path)
	}
	return nil
}

func (c *Console) listMovements(context.Context) error {
	c.printMovements(c.shop.Movements())
	return nil
}

func (c *Console) save(ctx context.Context) error {
	if err := c.shop.Save(ctx); err != nil {
		return err
	}
	c.println("Data saved.")
	return nil
}

func (c *Console) backup(ctx context.Context) error {
	path, err := c.shop.Backup(ctx)
	if err != nil {
		return err
	}
	c.printf("Backup written to %s\n", path)
	return nil
}
