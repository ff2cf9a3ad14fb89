package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	client "github.com/mamadbah2/medpos/pkg/clients/whatsapp"
)

// Notifier sends short text messages to customers and staff.
type Notifier interface {
	SendReceipt(ctx context.Context, inv models.Invoice) error
	SendText(ctx context.Context, to, body string) error
}

// WhatsAppNotifier delivers notifications through the WhatsApp Cloud API.
type WhatsAppNotifier struct {
	client   client.Client
	shopName string
	currency string
	logger   *zap.Logger
}

// NewWhatsAppNotifier wires a notifier.
func NewWhatsAppNotifier(c client.Client, shopName, currency string, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: c, shopName: shopName, currency: currency, logger: logger}
}

// SendReceipt texts the invoice summary to the customer phone, if any.
func (n *WhatsAppNotifier) SendReceipt(ctx context.Context, inv models.Invoice) error {
	if inv.Customer.Phone == "" {
		return nil
	}
	return n.SendText(ctx, inv.Customer.Phone, ReceiptText(n.shopName, n.currency, inv))
}

func (n *WhatsAppNotifier) SendText(ctx context.Context, to, body string) error {
	id, err := n.client.SendTextMessage(ctx, to, body)
	if err != nil {
		return err
	}
	n.logger.Debug("whatsapp message sent", zap.String("message_id", id))
	return nil
}

// ReceiptText renders the plain text receipt.
func ReceiptText(shopName, currency string, inv models.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nInvoice %s (%s)\n", shopName, inv.Number, inv.GeneratedAt.Format(models.LedgerTimeLayout))
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "%s x %d = %s\n", item.Name, item.Quantity, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Subtotal: %s %s\n", inv.Subtotal.StringFixed(2), currency)
	fmt.Fprintf(&b, "Discount (%s%%): -%s %s\n", inv.DiscountPercent.String(), inv.DiscountAmount.StringFixed(2), currency)
	fmt.Fprintf(&b, "Total: %s %s\nThank you!", inv.FinalTotal.StringFixed(2), currency)
	return b.String()
}
