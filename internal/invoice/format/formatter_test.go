package format_test

import (
	"testing"
	"time"

	"github.com/smallbiznis/invoiced/internal/invoice/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumberDefaultTemplate(t *testing.T) {
	issuedAt := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

	number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, issuedAt, 1)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0001", number)

	number, err = format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, issuedAt, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0042", number)
}

func TestFormatInvoiceNumberWideSequence(t *testing.T) {
	issuedAt := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, issuedAt, 123456)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-123456", number)
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	issuedAt := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := format.FormatInvoiceNumber("", issuedAt, 1)
	assert.Error(t, err)

	_, err = format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, issuedAt, 0)
	assert.Error(t, err)

	_, err = format.FormatInvoiceNumber("INV-{BOGUS}", issuedAt, 1)
	assert.Error(t, err)
}
