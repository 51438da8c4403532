package rules

import "github.com/finsift/finsift/internal/model"

// Vocabulary is a closed keyword table voting for one transaction type.
type Vocabulary struct {
	Type     model.TransactionType
	Keywords []string
}

// DefaultVocabularies returns the keyword tables used to classify a document
// as describing a payment or an expense. English and Spanish, since the
// documents this system sees come from both.
func DefaultVocabularies() []Vocabulary {
	return []Vocabulary{
		{
			Type: model.TypePayment,
			Keywords: []string{
				"payment received",
				"pago recibido",
				"thank you for your payment",
				"gracias por su pago",
				"transfer received",
				"transferencia recibida",
				"deposit",
				"deposito",
				"abono",
				"invoice paid",
				"factura pagada",
				"comprobante de pago",
				"payment confirmation",
				"wire received",
			},
		},
		{
			Type: model.TypeExpense,
			Keywords: []string{
				"receipt",
				"recibo",
				"purchase",
				"compra",
				"cargo",
				"charge",
				"order confirmation",
				"total due",
				"amount due",
				"subscription",
				"suscripcion",
				"invoice", // plain invoices are bills to pay unless marked paid
				"factura",
				"ticket de compra",
				"nota de venta",
			},
		},
	}
}

// AmountPattern is a prioritized regex for locating the document's amount.
// Higher priority wins; numeric value breaks ties within a priority.
type AmountPattern struct {
	Name     string
	Regex    string
	Priority int
}

// DefaultAmountPatterns returns the amount extraction table. Labelled totals
// outrank bare currency-symbol matches.
func DefaultAmountPatterns() []AmountPattern {
	return []AmountPattern{
		{
			Name:     "labelled total",
			Regex:    `(?i)\b(?:grand\s+total|total\s+due|total|monto|amount\s+due|amount|importe)\b[^\d$€£-]{0,10}[$€£]?\s*(\d[\d.,]*)`,
			Priority: 100,
		},
		{
			Name:     "currency code amount",
			Regex:    `(?i)(?:USD|MXN|EUR|GBP|CAD)\s*\$?\s*(\d[\d.,]*)|(\d[\d.,]*)\s*(?:USD|MXN|EUR|GBP|CAD)\b`,
			Priority: 80,
		},
		{
			Name:     "currency symbol amount",
			Regex:    `[$€£]\s*(\d[\d.,]*)`,
			Priority: 50,
		},
	}
}
