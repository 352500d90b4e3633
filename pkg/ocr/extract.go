package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule is one candidate pattern for a field. Rules for a field are tried in
// priority order and the first match wins; partial matches are never merged
// across rules. An optional veto pattern is checked against the text
// immediately following the match (regexp has no lookahead, so the guard
// lives outside the pattern); a vetoed occurrence is skipped and the scan
// resumes at the next position, like a lookahead-guarded search would.
type Rule struct {
	re    *regexp.Regexp
	group int
	veto  *regexp.Regexp
}

// find returns the captured group for the first occurrence of the rule in
// text that survives the veto guard.
func (r Rule) find(text string) (string, bool) {
	offset := 0
	for offset <= len(text) {
		loc := r.re.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			return "", false
		}
		if r.veto != nil && r.veto.MatchString(text[offset+loc[1]:]) {
			offset += loc[0] + 1
			continue
		}
		start, end := loc[2*r.group], loc[2*r.group+1]
		if start < 0 {
			return "", false
		}
		return text[offset+start : offset+end], true
	}
	return "", false
}

// Fields holds the five extracted receipt fields. Each is independently
// optional: a nil pointer means the extractor found nothing, which is not an
// error.
type Fields struct {
	MerchantName  *string  `json:"merchant_name"`
	Date          *string  `json:"date"`
	TotalAmount   *float64 `json:"total_amount"`
	TransactionID *string  `json:"transaction_id"`
	PaymentMethod *string  `json:"payment_method"`
}

// Result is the unit returned per image: all extracted fields plus the raw
// OCR text they were derived from.
type Result struct {
	Text   string `json:"text"`
	Fields Fields `json:"extracted_info"`
}

// Pattern order below is significant: earlier rules carry the more reliable
// signal. The total list deliberately tries the generic "Total" label before
// "Grand Total"; callers depend on this observed ordering, so it must not be
// reordered even though it looks inverted.
var totalRules = []Rule{
	{re: regexp.MustCompile(`(?i)Total\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1, veto: regexp.MustCompile(`^\s*\d`)},
	{re: regexp.MustCompile(`(?i)Grand\s*Total\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Total\s*Amount\s*Paid\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?is)PAYMENT SUMMARY.*?\n.*?Credit Card\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Sub\s*Total\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Amount\s*Paid\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Net\s*Payable\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Balance\s*Due\s*[:\-]?\s*(?:INR|₹)?\s*([\d.,]+)`), group: 1},
}

var dateRules = []Rule{
	{re: regexp.MustCompile(`(?i)Date\s*[:\-]?\s*(\d{2}/\d{2}/\d{2,4})`), group: 1},
	{re: regexp.MustCompile(`(?i)Date\s*[:\-]?\s*(\d{2}-\d{2}-\d{2,4})`), group: 1},
	{re: regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})`), group: 1},
	{re: regexp.MustCompile(`(\d{2}-\d{2}-\d{2,4})`), group: 1},
	{re: regexp.MustCompile(`(\d{4}/\d{2}/\d{2})`), group: 1},
	{re: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`), group: 1},
	{re: regexp.MustCompile(`(?i)Date\s*[:\-]?\s*(\w+\s\d{1,2},\s\d{4})`), group: 1},
}

var transactionIDRules = []Rule{
	{re: regexp.MustCompile(`(?i)Inv\s*No\s*[:\-]?\s*([\w/\-]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Invoice\s*No\s*[:\-]?\s*([\w/\-]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Bill\s*No\s*[:\-]?\s*([\w/\-]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Transaction\s*ID\s*[:\-]?\s*([\w/\-]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Receipt\s*No\s*[:\-]?\s*([\w/\-]+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Bill\s*No\.\s*[:\-]?\s*(\d+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Bill\s*No\.\s*:\s*(\d+)`), group: 1},
}

var paymentMethodRules = []Rule{
	{re: regexp.MustCompile(`(?i)Payment\s*Method\s*[:\-]?\s*(\w+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Paid\s*via\s*[:\-]?\s*(\w+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Payment\s*Mode\s*[:\-]?\s*(\w+)`), group: 1},
	// Reversed pattern: the word before "Card : <amount>" names the method,
	// e.g. "Credit Card : 42.00" captures "Credit".
	{re: regexp.MustCompile(`(?i)(\w+)\s*Card\s*:\s*[\d.,]+`), group: 1},
	{re: regexp.MustCompile(`(?i)Payment\s*Type\s*[:\-]?\s*(\w+)`), group: 1},
	{re: regexp.MustCompile(`(?i)Method\s*of\s*Payment\s*[:\-]?\s*(\w+)`), group: 1},
}

// Merchant line filters. The fallback stoplist additionally excludes
// Sub/Grand so subtotal lines never masquerade as a business name.
var (
	merchantStopRE         = regexp.MustCompile(`(?i)GST|INR|Date|Total|Bill|No|Token|Qty|Amount|\d`)
	merchantFallbackStopRE = regexp.MustCompile(`(?i)GST|INR|Date|Total|Bill|No|Token|Qty|Amount|\d|Sub|Grand`)
	merchantSuffixRE       = regexp.MustCompile(`(?i)Ltd|Limited|Store|Retail|Inc|Corporation|Corp|LLC|Shop|Supermarket|Bazaar|Restaurant`)
)

var titleCaser = cases.Title(language.English)

// ExtractTotalAmount finds the receipt total, trying labels in priority
// order. The matched number has thousands separators stripped and must parse
// as a non-negative decimal; a parse failure skips to the next rule instead
// of failing the extraction.
func ExtractTotalAmount(text string) (float64, bool) {
	for _, rule := range totalRules {
		raw, ok := rule.find(text)
		if !ok {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil || amount < 0 {
			continue
		}
		return amount, true
	}
	return 0, false
}

// ExtractDate returns the first date-looking substring as matched, unparsed.
// The caller receives the raw text so format ambiguity (DD/MM vs MM/DD) is
// preserved rather than guessed at.
func ExtractDate(text string) (string, bool) {
	for _, rule := range dateRules {
		if raw, ok := rule.find(text); ok {
			return raw, true
		}
	}
	return "", false
}

// ExtractMerchantName looks for the business name near the top of the
// receipt: the first of the leading ten lines that is long enough, free of
// receipt jargon, and carries a business-entity suffix. When no such line
// exists it falls back to the first jargon-free line anywhere in the text,
// suffix or not.
func ExtractMerchantName(text string) (string, bool) {
	lines := strings.Split(text, "\n")

	head := lines
	if len(head) > 10 {
		head = head[:10]
	}
	for _, line := range head {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= 3 || merchantStopRE.MatchString(line) {
			continue
		}
		if merchantSuffixRE.MatchString(line) {
			return line, true
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > 3 && !merchantFallbackStopRE.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

// ExtractTransactionID finds the transaction, invoice or bill number.
func ExtractTransactionID(text string) (string, bool) {
	for _, rule := range transactionIDRules {
		if raw, ok := rule.find(text); ok {
			return strings.TrimSpace(raw), true
		}
	}
	return "", false
}

// ExtractPaymentMethod finds how the receipt was paid. The result is
// title-cased ("cash" and "CASH" both become "Cash").
func ExtractPaymentMethod(text string) (string, bool) {
	for _, rule := range paymentMethodRules {
		if raw, ok := rule.find(text); ok {
			return titleCaser.String(strings.TrimSpace(raw)), true
		}
	}
	return "", false
}

// ExtractAll runs the five independent extractors over the same text. The
// extractors are pure and order-insensitive relative to each other; identical
// text always yields an identical Result.
func ExtractAll(text string) Result {
	res := Result{Text: text}
	if v, ok := ExtractMerchantName(text); ok {
		res.Fields.MerchantName = &v
	}
	if v, ok := ExtractDate(text); ok {
		res.Fields.Date = &v
	}
	if v, ok := ExtractTotalAmount(text); ok {
		res.Fields.TotalAmount = &v
	}
	if v, ok := ExtractTransactionID(text); ok {
		res.Fields.TransactionID = &v
	}
	if v, ok := ExtractPaymentMethod(text); ok {
		res.Fields.PaymentMethod = &v
	}
	return res
}
