package lockboxfile

import (
	"time"

	"github.com/flexprice/lockbox/internal/testutil"
)

// fixedNow anchors the two-digit year window for every test in the package
var fixedNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var (
	pad                  = testutil.PadLockboxLine
	headerLine           = testutil.LockboxHeaderLine
	serviceHeaderLine    = testutil.LockboxServiceHeaderLine
	serviceHeaderLineFor = testutil.LockboxServiceHeaderLineFor
	detailHeaderLine     = testutil.LockboxDetailHeaderLine
	detailLine           = testutil.LockboxDetailLine
	overflowLine         = testutil.LockboxOverflowLine
	batchTotalLine       = testutil.LockboxBatchTotalLine
	serviceTotalLine     = testutil.LockboxServiceTotalLine
	trailerLine          = testutil.LockboxTrailerLine
	joinLines            = testutil.JoinLockboxLines
)

// singleBatchFile is one batch holding one $100.00 check applied to one invoice
func singleBatchFile(batchTotalCents int64) []byte {
	return joinLines(
		headerLine("2410191230"),
		serviceHeaderLine(),
		detailHeaderLine("001"),
		detailLine("001", "001", "000123456789", "0210000021", "00000001", 10000),
		overflowLine("001", "001", "01", "INV1", 10000, "CUST1"),
		batchTotalLine("001", 1, batchTotalCents),
		serviceTotalLine(1, 10000),
		trailerLine(6),
	)
}

func parse(content []byte, opts ...Option) (*Result, error) {
	return Parse(content, append([]Option{WithClock(fixedClock)}, opts...)...)
}
