package testutil

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LockboxLineWidth is the fixed width of every lockbox file line
const LockboxLineWidth = 80

// Line builders for lockbox test files. Amounts are in cents.

// PadLockboxLine pads s with spaces to the line width, counted in characters
func PadLockboxLine(s string) string {
	n := utf8.RuneCountInString(s)
	if n > LockboxLineWidth {
		panic(fmt.Sprintf("test line longer than %d: %q", LockboxLineWidth, s))
	}
	return s + strings.Repeat(" ", LockboxLineWidth-n)
}

func LockboxHeaderLine(created string) string {
	return PadLockboxLine(fmt.Sprintf("1%-2s%-10s%-23s%-10s", "01", "0210000021", "FIRST NATIONAL", created))
}

func LockboxServiceHeaderLine() string {
	return LockboxServiceHeaderLineFor("ACME SUPPLY CO")
}

func LockboxServiceHeaderLineFor(company string) string {
	return PadLockboxLine(fmt.Sprintf("2%-23s%-10s", company, "0210000021"))
}

func LockboxDetailHeaderLine(batch string) string {
	return PadLockboxLine(fmt.Sprintf("5%-3s%-3s%-7s%-6s%-23s%-10s", batch, "000", "1234567", "241019", "ACME SUPPLY CO", "0210000021"))
}

func LockboxDetailLine(batch, item, account, routing, check string, cents int64) string {
	return PadLockboxLine(fmt.Sprintf("6%-3s%-3s%-7s%-6s%-15s%-10s%-8s%010d", batch, item, "1234567", "241019", account, routing, check, cents))
}

func LockboxOverflowLine(batch, item, seq, invoice string, cents int64, customer string) string {
	return PadLockboxLine(fmt.Sprintf("4%-3s%-3s%-1s%-2s%-15s%010d%-15s", batch, item, "4", seq, invoice, cents, customer))
}

func LockboxBatchTotalLine(batch string, count int, cents int64) string {
	return PadLockboxLine(fmt.Sprintf("7%-3s%-3s%-7s%-6s%04d%010d", batch, "999", "1234567", "241019", count, cents))
}

func LockboxServiceTotalLine(count int, cents int64) string {
	return PadLockboxLine(fmt.Sprintf("8%-7s%-6s%04d%010d", "1234567", "241019", count, cents))
}

func LockboxTrailerLine(count int) string {
	return PadLockboxLine(fmt.Sprintf("9%06d", count))
}

// JoinLockboxLines joins lines with line feeds, ending with one
func JoinLockboxLines(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// LockboxCheck is one check of a generated file, applied in full to one invoice
type LockboxCheck struct {
	Account string
	Routing string
	Cents   int64
	Invoice string
}

// BuildLockboxFile returns a valid file with one batch per element of
// batches. The created stamp makes otherwise identical files distinct.
func BuildLockboxFile(created string, batches ...[]LockboxCheck) []byte {
	lines := []string{LockboxHeaderLine(created), LockboxServiceHeaderLine()}
	var fileTotal int64
	var checks int
	for i, batch := range batches {
		num := fmt.Sprintf("%03d", i+1)
		lines = append(lines, LockboxDetailHeaderLine(num))
		var batchTotal int64
		for j, c := range batch {
			item := fmt.Sprintf("%03d", j+1)
			lines = append(lines,
				LockboxDetailLine(num, item, c.Account, c.Routing, fmt.Sprintf("%08d", j+1), c.Cents),
				LockboxOverflowLine(num, item, "01", c.Invoice, c.Cents, "CUST1"),
			)
			batchTotal += c.Cents
		}
		lines = append(lines, LockboxBatchTotalLine(num, len(batch), batchTotal))
		fileTotal += batchTotal
		checks += len(batch)
	}
	lines = append(lines, LockboxServiceTotalLine(checks, fileTotal))
	lines = append(lines, LockboxTrailerLine(len(lines)))
	return JoinLockboxLines(lines...)
}
