package core

import (
	"sort"
	"strings"
	"time"
)

// splitCSVLine splits one CSV line on commas, honoring double quotes.
// Quotes toggle quoting and are dropped; they do not nest or escape.
func splitCSVLine(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(ch)
		}
	}
	fields = append(fields, field.String())
	return fields
}

// ParseBankCSV extracts deposit records from raw bank statement text.
// Expected columns: date, depositor, deposit amount, withdrawal amount,
// balance. The first line is a header and is skipped; only rows with a
// positive deposit amount become records.
func ParseBankCSV(text string) []Deposit {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var deposits []Deposit
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitCSVLine(line)
		if len(fields) < 3 {
			continue
		}
		amount := parseNumber(fields[2])
		if !amount.IsPositive() {
			continue
		}
		deposits = append(deposits, Deposit{
			Date:      strings.TrimSpace(fields[0]),
			Depositor: strings.TrimSpace(fields[1]),
			Amount:    amount,
		})
	}
	return deposits
}

// parseDay parses a YYYY-MM-DD string into a day-resolution time.
func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween returns the absolute whole-day distance between two dates.
func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// MatchDeposits pairs deposits with open invoices, first fit: deposits are
// scanned in order and each takes the first invoice within both tolerances.
// A matched invoice leaves the candidate pool, so no invoice is split
// across two deposits in one batch. The score only orders the output; it
// never picks a better candidate over an earlier one — a known greedy
// limitation.
func MatchDeposits(deposits []Deposit, invoices []OpenInvoice, tol MatchTolerance) (matches []DepositMatch, unmatched []Deposit) {
	remaining := make([]OpenInvoice, len(invoices))
	copy(remaining, invoices)

	for _, dep := range deposits {
		depDate, ok := parseDay(dep.Date)
		if !ok {
			unmatched = append(unmatched, dep)
			continue
		}

		matchedIdx := -1
		for j, inv := range remaining {
			invDate, ok := parseDay(inv.InvoiceDate)
			if !ok {
				continue
			}

			amountDiff := dep.Amount.Sub(inv.RemainingAmount).Abs()
			if amountDiff.GreaterThan(tol.AmountTolerance) {
				continue
			}
			dateDiff := daysBetween(depDate, invDate)
			if dateDiff > tol.DateTolerance {
				continue
			}

			score := 100.0
			if inv.RemainingAmount.IsPositive() {
				ratio, _ := amountDiff.Div(inv.RemainingAmount).Float64()
				score -= ratio * 50
			}
			if tol.DateTolerance > 0 {
				score -= float64(dateDiff) / float64(tol.DateTolerance) * 50
			}

			matches = append(matches, DepositMatch{
				Deposit:    dep,
				InvoiceID:  inv.InvoiceID,
				Company:    inv.Company,
				AmountDiff: amountDiff,
				DateDiff:   dateDiff,
				Score:      score,
			})
			matchedIdx = j
			break
		}

		if matchedIdx >= 0 {
			remaining = append(remaining[:matchedIdx], remaining[matchedIdx+1:]...)
		} else {
			unmatched = append(unmatched, dep)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, unmatched
}
