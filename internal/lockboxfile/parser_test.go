package lockboxfile

import (
	"strings"
	"testing"
	"time"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleBatch(t *testing.T) {
	res, err := parse(singleBatchFile(10000))
	require.NoError(t, err)

	require.Len(t, res.Batches, 1)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Details, 1)
	assert.Empty(t, res.SkippedLines)
	assert.Equal(t, 8, res.LineCount)

	batch := res.Batches[0]
	assert.Equal(t, "00001", batch.ID)
	assert.Equal(t, "001", batch.BatchID)
	assert.Equal(t, "1234567", batch.LockboxNumber)
	assert.Equal(t, 1, batch.Count)
	assert.True(t, decimal.RequireFromString("100.00").Equal(batch.Amount))
	assert.True(t, batch.Amount.Equal(batch.OutstandingAmount))
	assert.Equal(t, res.ContentHash, batch.FileHash)
	assert.Equal(t, time.Date(2024, time.October, 19, 0, 0, 0, 0, time.UTC), batch.EnteredAt)

	item := res.Items[0]
	assert.Equal(t, batch.ID, item.BatchID)
	assert.Equal(t, "001", item.ItemSeqID)
	assert.Equal(t, "1", item.CheckNumber)
	assert.Equal(t, "000123456789", item.AccountNumber)
	assert.Equal(t, "0210000021", item.RoutingNumber)
	assert.Equal(t, "100", item.CheckAmount.String())

	detail := res.Details[0]
	assert.Equal(t, batch.ID, detail.BatchID)
	assert.Equal(t, "001", detail.ItemSeqID)
	assert.Equal(t, "01", detail.DetailSeqID)
	assert.Equal(t, "INV1", detail.InvoiceNumber)
	assert.Equal(t, "CUST1", detail.CustomerID)
	assert.True(t, decimal.NewFromInt(100).Equal(detail.InvoiceAmount))

	assert.Equal(t, map[string]string{"000123456789": "0210000021"}, res.AccountRouting)
	assert.Empty(t, res.RoutingConflicts)
	assert.Len(t, res.ContentHash, 64)

	require.NotNil(t, res.File.Header)
	assert.Equal(t, time.Date(2024, time.October, 19, 12, 30, 0, 0, time.UTC), res.File.Header.Created)
	assert.Equal(t, "FIRST NATIONAL", res.File.Header.CompanyName)
	require.NotNil(t, res.File.ServiceHeader)
	assert.Equal(t, "ACME SUPPLY CO", res.File.ServiceHeader.CompanyName)
	assert.Equal(t, 6, res.File.Trailer.RecordCount)
	assert.True(t, decimal.NewFromInt(100).Equal(res.TotalAmount()))
}

func TestParse_BatchTotalMismatch(t *testing.T) {
	_, err := parse(singleBatchFile(9900))
	require.Error(t, err)
	assert.True(t, ierr.IsReconciliation(err))
	assert.Contains(t, err.Error(), "$99.00")
	assert.Contains(t, err.Error(), "$100.00")
}

func TestParse_BatchTotalOffByOneCent(t *testing.T) {
	_, err := parse(singleBatchFile(10001))
	require.Error(t, err)
	assert.True(t, ierr.IsReconciliation(err))
	assert.Contains(t, err.Error(), "$100.01")
	assert.Contains(t, err.Error(), "$100.00")
}

func TestParse_ServiceTotalMismatch(t *testing.T) {
	content := joinLines(
		headerLine("2410191230"),
		detailHeaderLine("001"),
		detailLine("001", "001", "111", "0210000021", "1", 2500),
		batchTotalLine("001", 1, 2500),
		detailHeaderLine("002"),
		detailLine("002", "001", "222", "0210000021", "2", 7500),
		batchTotalLine("002", 1, 7500),
		serviceTotalLine(2, 9999),
		trailerLine(7),
	)

	_, err := parse(content)
	require.Error(t, err)
	assert.True(t, ierr.IsReconciliation(err))
	assert.Contains(t, err.Error(), "service total amount $99.99")
	assert.Contains(t, err.Error(), "$100.00")
}

func TestParse_MultipleBatches(t *testing.T) {
	content := joinLines(
		headerLine("2410191230"),
		serviceHeaderLine(),
		detailHeaderLine("001"),
		detailLine("001", "001", "111", "0210000021", "00001001", 2500),
		overflowLine("001", "001", "01", "0000INV-10", 1500, "C1"),
		overflowLine("001", "001", "02", "INV-11", 1000, "C1"),
		detailLine("001", "002", "222", "0110000015", "00001002", 2500),
		batchTotalLine("001", 2, 5000),
		detailHeaderLine("002"),
		detailLine("002", "001", "111", "0260009593", "00001003", 5000),
		batchTotalLine("002", 1, 5000),
		serviceTotalLine(3, 10000),
		trailerLine(11),
	)

	res, err := parse(content)
	require.NoError(t, err)

	require.Len(t, res.Batches, 2)
	require.Len(t, res.Items, 3)
	require.Len(t, res.Details, 2)

	assert.Equal(t, []string{"00001", "00002"}, []string{res.Batches[0].ID, res.Batches[1].ID})
	assert.Equal(t, []string{"00001", "00001", "00002"}, []string{res.Items[0].BatchID, res.Items[1].BatchID, res.Items[2].BatchID})
	assert.Equal(t, "INV-10", res.Details[0].InvoiceNumber)
	assert.Equal(t, "02", res.Details[1].DetailSeqID)

	// account 111 shows up again with a different routing number, last one wins
	assert.Equal(t, "0260009593", res.AccountRouting["111"])
	assert.Equal(t, "0110000015", res.AccountRouting["222"])
	require.Len(t, res.RoutingConflicts, 1)
	assert.Equal(t, RoutingConflict{
		AccountNumber:   "111",
		RoutingNumber:   "0260009593",
		PreviousRouting: "0210000021",
		Line:            10,
	}, res.RoutingConflicts[0])

	require.Len(t, res.File.Batches, 2)
	assert.Len(t, res.File.Batches[0].Items[0].Applications, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(res.TotalAmount()))
}

func TestParse_Idempotent(t *testing.T) {
	content := singleBatchFile(10000)

	first, err := parse(content)
	require.NoError(t, err)
	second, err := parse(content)
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.Batches, second.Batches)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Details, second.Details)
	assert.Equal(t, first.AccountRouting, second.AccountRouting)
}

func TestParse_BlankLineAndCRLF(t *testing.T) {
	a, err := parse(singleBatchFile(10000))
	require.NoError(t, err)

	b, err := parse(append(singleBatchFile(10000), '\n'))
	require.Error(t, err, "an extra blank line is a line of the wrong width")
	assert.Nil(t, b)

	crlf := []byte(strings.ReplaceAll(string(singleBatchFile(10000)), "\n", "\r\n"))
	c, err := parse(crlf)
	require.NoError(t, err)
	assert.NotEqual(t, a.ContentHash, c.ContentHash)
	assert.Equal(t, a.Batches[0].Amount, c.Batches[0].Amount)
}

func TestParse_Uniqueness(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		message string
	}{
		{
			name: "duplicate batch number",
			lines: []string{
				headerLine("2410191230"),
				detailHeaderLine("001"),
				detailLine("001", "001", "111", "0210000021", "1", 100),
				batchTotalLine("001", 1, 100),
				detailHeaderLine("001"),
				detailLine("001", "001", "111", "0210000021", "2", 100),
				batchTotalLine("001", 1, 100),
				serviceTotalLine(2, 200),
				trailerLine(7),
			},
			message: "line 5: duplicate batch number 001, first used on line 2",
		},
		{
			name: "duplicate item number in batch",
			lines: []string{
				headerLine("2410191230"),
				detailHeaderLine("001"),
				detailLine("001", "001", "111", "0210000021", "1", 100),
				detailLine("001", "001", "222", "0210000021", "2", 100),
				batchTotalLine("001", 2, 200),
				serviceTotalLine(2, 200),
				trailerLine(5),
			},
			message: "line 4: duplicate item number 001 in batch 001, first used on line 3",
		},
		{
			name: "duplicate application sequence",
			lines: []string{
				headerLine("2410191230"),
				detailHeaderLine("001"),
				detailLine("001", "001", "111", "0210000021", "1", 100),
				overflowLine("001", "001", "01", "INV1", 50, "C1"),
				overflowLine("001", "001", "01", "INV2", 50, "C1"),
				batchTotalLine("001", 1, 100),
				serviceTotalLine(1, 100),
				trailerLine(6),
			},
			message: "line 5: duplicate application sequence 01 for item 001 in batch 001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(joinLines(tt.lines...))
			require.Error(t, err)
			assert.True(t, ierr.IsUniqueness(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_SameItemNumberAcrossBatches(t *testing.T) {
	content := joinLines(
		headerLine("2410191230"),
		detailHeaderLine("001"),
		detailLine("001", "001", "111", "0210000021", "1", 100),
		batchTotalLine("001", 1, 100),
		detailHeaderLine("002"),
		detailLine("002", "001", "111", "0210000021", "2", 100),
		batchTotalLine("002", 1, 100),
		serviceTotalLine(2, 200),
		trailerLine(7),
	)

	res, err := parse(content)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestParse_RecordOrder(t *testing.T) {
	h := headerLine("2410191230")

	tests := []struct {
		name    string
		lines   []string
		message string
	}{
		{
			name:    "first line is not a header",
			lines:   []string{serviceHeaderLine(), h},
			message: "line 1: expected a header record as the first line, got a service header record",
		},
		{
			name:    "second header",
			lines:   []string{h, h},
			message: "line 2: unexpected header record",
		},
		{
			name:    "second service header",
			lines:   []string{h, serviceHeaderLine(), serviceHeaderLine()},
			message: "line 3: unexpected service header record",
		},
		{
			name: "service header after a batch",
			lines: []string{
				h,
				detailHeaderLine("001"),
				batchTotalLine("001", 0, 0),
				serviceHeaderLine(),
			},
			message: "line 4: unexpected service header record",
		},
		{
			name:    "overflow before any batch",
			lines:   []string{h, serviceHeaderLine(), overflowLine("001", "001", "01", "INV1", 100, "C1")},
			message: "line 3: overflow record with no batch in progress",
		},
		{
			name:    "detail before any batch",
			lines:   []string{h, detailLine("001", "001", "111", "0210000021", "1", 100)},
			message: "line 2: detail record with no batch in progress",
		},
		{
			name:    "batch total before any batch",
			lines:   []string{h, batchTotalLine("001", 0, 0)},
			message: "line 2: batch total record with no batch in progress",
		},
		{
			name:    "trailer before service total",
			lines:   []string{h, trailerLine(1)},
			message: "line 2: destination trailer record before the service total record",
		},
		{
			name:    "nested batch",
			lines:   []string{h, detailHeaderLine("001"), detailHeaderLine("002")},
			message: "line 3: batch 002 opened while batch 001 is still in progress",
		},
		{
			name:    "overflow before the first check of a batch",
			lines:   []string{h, detailHeaderLine("001"), overflowLine("001", "001", "01", "INV1", 100, "C1")},
			message: "line 3: overflow record with no check in batch 001",
		},
		{
			name:    "check of another batch",
			lines:   []string{h, detailHeaderLine("001"), detailLine("002", "001", "111", "0210000021", "1", 100)},
			message: "line 3: detail record for batch 002 inside batch 001",
		},
		{
			name:    "batch total of another batch",
			lines:   []string{h, detailHeaderLine("001"), batchTotalLine("002", 0, 0)},
			message: "line 3: batch total record for batch 002 while batch 001 is in progress",
		},
		{
			name:    "header inside a batch",
			lines:   []string{h, detailHeaderLine("001"), h},
			message: "line 3: unexpected header record inside batch 001",
		},
		{
			name:    "service total inside a batch",
			lines:   []string{h, detailHeaderLine("001"), serviceTotalLine(0, 0)},
			message: "line 3: service total record while batch 001 is still in progress",
		},
		{
			name:    "trailer inside a batch",
			lines:   []string{h, detailHeaderLine("001"), trailerLine(1)},
			message: "line 3: destination trailer record while batch 001 is still in progress",
		},
		{
			name:    "duplicate service total",
			lines:   []string{h, serviceTotalLine(0, 0), serviceTotalLine(0, 0)},
			message: "line 3: duplicate service total record, first read on line 2",
		},
		{
			name:    "batch after service total",
			lines:   []string{h, serviceTotalLine(0, 0), detailHeaderLine("001")},
			message: "line 3: unexpected detail header record after the service total record",
		},
		{
			name:    "record after trailer",
			lines:   []string{h, serviceTotalLine(0, 0), trailerLine(1), trailerLine(1)},
			message: "line 4: unexpected destination trailer record after the destination trailer",
		},
		{
			name:    "empty file",
			lines:   nil,
			message: "unexpected end of file after line 0: missing header record",
		},
		{
			name:    "missing service total",
			lines:   []string{h, detailHeaderLine("001"), batchTotalLine("001", 0, 0)},
			message: "missing service total record",
		},
		{
			name:    "unterminated batch",
			lines:   []string{h, detailHeaderLine("001"), detailLine("001", "001", "111", "0210000021", "1", 100)},
			message: "batch 001 was never closed by a batch total record",
		},
		{
			name:    "missing trailer",
			lines:   []string{h, serviceTotalLine(0, 0)},
			message: "missing destination trailer record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var content []byte
			if len(tt.lines) > 0 {
				content = joinLines(tt.lines...)
			}
			res, err := parse(content)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, ierr.IsStructure(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_EmptyBatchAndFile(t *testing.T) {
	content := joinLines(
		headerLine("2410191230"),
		detailHeaderLine("001"),
		batchTotalLine("001", 0, 0),
		serviceTotalLine(0, 0),
		trailerLine(3),
	)

	res, err := parse(content)
	require.NoError(t, err)
	assert.Len(t, res.Batches, 1)
	assert.Empty(t, res.Items)
	assert.Nil(t, res.File.ServiceHeader)
	assert.True(t, res.TotalAmount().IsZero())
}

func TestParse_LineWidth(t *testing.T) {
	short := strings.TrimRight(serviceHeaderLine(), " ")
	content := joinLines(headerLine("2410191230"), short)

	_, err := parse(content)
	require.Error(t, err)
	assert.True(t, ierr.IsStructure(err))
	assert.Contains(t, err.Error(), "line 2 is 34 characters long, expected 80")

	long := joinLines(headerLine("2410191230") + "X")
	_, err = parse(long)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1 is 81 characters long")
}

func TestParse_NonASCIIText(t *testing.T) {
	company := "SOCIÉTÉ GÉNÉRALE"
	line := serviceHeaderLineFor(company)
	require.Greater(t, len(line), LineWidth, "accented letters take two bytes")

	content := joinLines(
		headerLine("2410191230"),
		line,
		detailHeaderLine("001"),
		detailLine("001", "001", "111", "0210000021", "1", 100),
		batchTotalLine("001", 1, 100),
		serviceTotalLine(1, 100),
		trailerLine(6),
	)

	res, err := parse(content)
	require.NoError(t, err)
	require.NotNil(t, res.File.ServiceHeader)
	assert.Equal(t, company, res.File.ServiceHeader.CompanyName)
	assert.Equal(t, "0210000021", res.File.ServiceHeader.RoutingNumber)

	t.Run("width counts characters", func(t *testing.T) {
		_, err := parse(joinLines(headerLine("2410191230"), line+"É"))
		require.Error(t, err)
		assert.True(t, ierr.IsStructure(err))
		assert.Contains(t, err.Error(), "line 2 is 81 characters long, expected 80")
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		bad := []byte(serviceHeaderLine())
		bad[5] = 0xff
		_, err := parse(joinLines(headerLine("2410191230"), string(bad)))
		require.Error(t, err)
		assert.True(t, ierr.IsDecode(err))
		assert.Contains(t, err.Error(), "line 2 is not valid UTF-8")
	})
}

func TestParse_UnknownRecordType(t *testing.T) {
	vendor := pad("3VENDOR SPECIFIC")
	content := joinLines(
		headerLine("2410191230"),
		vendor,
		detailHeaderLine("001"),
		detailLine("001", "001", "111", "0210000021", "1", 100),
		vendor,
		batchTotalLine("001", 1, 100),
		serviceTotalLine(1, 100),
		trailerLine(6),
	)

	t.Run("skipped by default", func(t *testing.T) {
		res, err := parse(content)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 5}, res.SkippedLines)
		assert.Len(t, res.Items, 1)
	})

	t.Run("rejected in strict mode", func(t *testing.T) {
		_, err := parse(content, WithStrictRecordTypes())
		require.Error(t, err)
		assert.True(t, ierr.IsStructure(err))
		assert.Contains(t, err.Error(), `line 2: unknown record type "3"`)
	})
}

func TestParse_DecodeErrors(t *testing.T) {
	badAmount := []byte(detailLine("001", "001", "111", "0210000021", "1", 100))
	copy(badAmount[53:63], "00000X0100")

	tests := []struct {
		name    string
		line    string
		message string
	}{
		{
			name:    "non numeric amount",
			line:    string(badAmount),
			message: `line 3: amount field "00000X0100" of detail record is not an amount in cents`,
		},
		{
			name:    "blank amount",
			line:    pad(detailLine("001", "001", "111", "0210000021", "1", 100)[:53]),
			message: `amount field "          " of detail record is not an amount in cents`,
		},
		{
			name:    "impossible date",
			line:    pad(strings.Replace(batchTotalLine("001", 0, 0)[:34], "241019", "241332", 1)),
			message: `line 3: date field "241332" of batch total record is not a valid calendar date`,
		},
		{
			name:    "non numeric count",
			line:    pad(strings.Replace(batchTotalLine("001", 0, 0)[:34], "0000", "00A0", 1)),
			message: `count field "00A0" of batch total record is not a count`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := joinLines(headerLine("2410191230"), detailHeaderLine("001"), tt.line)
			_, err := parse(content)
			require.Error(t, err)
			assert.True(t, ierr.IsDecode(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_InvalidHeaderDateTime(t *testing.T) {
	_, err := parse(joinLines(headerLine("2410192460")))
	require.Error(t, err)
	assert.True(t, ierr.IsDecode(err))
	assert.Contains(t, err.Error(), `created field "2410192460" of header record is not a valid calendar date`)
}
