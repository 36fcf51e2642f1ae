package console

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/inventory"
	"github.com/xenking/shopledger/internal/domain/product"
	"github.com/xenking/shopledger/internal/receipt"
)

func (c *Console) money(v decimal.Decimal) string {
	if c.currency == "" {
		return v.StringFixed(2)
	}
	return v.StringFixed(2) + " " + c.currency
}

func (c *Console) printProducts(products []*product.Product) {
	if len(products) == 0 {
		c.println("No products found.")
		return
	}
	for _, p := range products {
		c.printf("Ref: %s | Name: %s | Price: %s | Stock: %d\n",
			p.Reference, p.Name, c.money(p.UnitPrice), p.Stock)
	}
}

func (c *Console) printClients(clients []*client.Client) {
	if len(clients) == 0 {
		c.println("No clients found.")
		return
	}
	for _, cl := range clients {
		c.printf("ID: %s | Name: %s\n", cl.ID, cl.FullName())
		c.printf("  Address: %s\n", orDash(cl.Address))
		c.printf("  Phone: %s | Email: %s\n", orDash(cl.Phone), orDash(cl.Email))
	}
}

func (c *Console) printMovements(movements []inventory.Movement) {
	if len(movements) == 0 {
		c.println("No stock movements in this session.")
		return
	}
	for _, m := range movements {
		c.printf("%s | %s | %+d (%d -> %d) | %s | %s\n",
			m.At.Local().Format(receipt.DateLayout),
			m.Reference, m.Delta, m.Before, m.After, m.Reason, m.Order)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
