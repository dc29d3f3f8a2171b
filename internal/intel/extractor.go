// Package intel holds the deterministic intelligence extractor and the
// per-session evidence sets it feeds. Extraction is pure pattern work with
// no external calls; it doubles as the trust boundary that validates
// model-produced extraction fields.
package intel

import (
	"regexp"
	"strings"
)

// Keyword vocabulary for the deterministic scam check. Two or more hits in
// a single message is treated as a scam signal on the fallback path.
var ScamKeywords = []string{
	"urgent", "blocked", "suspended", "verify", "account", "bank", "upi",
	"prize", "winner", "lottery", "claim", "fee", "payment", "otp", "kyc",
	"microsoft", "virus", "hacked", "job", "selected", "salary", "http",
}

// Closed set of payment-handle suffixes a UPI ID may carry. Anything else
// (mail domains in particular) is rejected.
var upiProviders = map[string]bool{
	"paytm":      true,
	"phonepe":    true,
	"gpay":       true,
	"upi":        true,
	"ybl":        true,
	"ibl":        true,
	"axl":        true,
	"apl":        true,
	"oksbi":      true,
	"okaxis":     true,
	"okicici":    true,
	"okhdfcbank": true,
	"sbi":        true,
	"hdfcbank":   true,
	"icici":      true,
	"axisbank":   true,
	"freecharge": true,
	"airtel":     true,
}

var (
	digitRunRe = regexp.MustCompile(`\d+`)
	upiRe      = regexp.MustCompile(`[A-Za-z0-9._\-]+@[A-Za-z]+`)
	urlRe      = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// Delta is one batch of extracted values, prior to dedup against the
// session's accumulated intelligence.
type Delta struct {
	BankAccounts       []string `json:"bank_accounts"`
	UPIIDs             []string `json:"upi_ids"`
	PhoneNumbers       []string `json:"phone_numbers"`
	PhishingLinks      []string `json:"phishing_links"`
	SuspiciousKeywords []string `json:"suspicious_keywords"`
}

// Empty reports whether the delta carries no values at all.
func (d Delta) Empty() bool {
	return len(d.BankAccounts) == 0 && len(d.UPIIDs) == 0 &&
		len(d.PhoneNumbers) == 0 && len(d.PhishingLinks) == 0 &&
		len(d.SuspiciousKeywords) == 0
}

// Extract runs the deterministic recognizers over a message. Precedence
// matters: a digit run is tried as a phone number before it can be read
// as a bank account, so the two sets can never share a value.
func Extract(text string) Delta {
	var d Delta

	seenPhone := map[string]bool{}
	seenBank := map[string]bool{}
	for _, run := range digitRunRe.FindAllString(text, -1) {
		if phone, ok := normalizePhone(run); ok {
			if !seenPhone[phone] {
				seenPhone[phone] = true
				d.PhoneNumbers = append(d.PhoneNumbers, phone)
			}
			continue
		}
		if len(run) >= 9 && len(run) <= 18 {
			if !seenBank[run] {
				seenBank[run] = true
				d.BankAccounts = append(d.BankAccounts, run)
			}
		}
	}

	seenUPI := map[string]bool{}
	for _, tok := range upiRe.FindAllString(text, -1) {
		upi, ok := normalizeUPI(tok)
		if !ok || seenUPI[upi] {
			continue
		}
		seenUPI[upi] = true
		d.UPIIDs = append(d.UPIIDs, upi)
	}

	seenURL := map[string]bool{}
	for _, tok := range urlRe.FindAllString(text, -1) {
		u := strings.TrimRight(tok, ".,;:!?)")
		if seenURL[u] {
			continue
		}
		seenURL[u] = true
		d.PhishingLinks = append(d.PhishingLinks, u)
	}

	lower := strings.ToLower(text)
	for _, kw := range ScamKeywords {
		if strings.Contains(lower, kw) {
			d.SuspiciousKeywords = append(d.SuspiciousKeywords, kw)
		}
	}
	if len(d.SuspiciousKeywords) > 5 {
		d.SuspiciousKeywords = d.SuspiciousKeywords[:5]
	}

	return d
}

// KeywordHits counts scam vocabulary hits in a message. Used by the
// fallback detector's threshold check.
func KeywordHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range ScamKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// Reconcile merges model-extracted fields with the regex extraction.
// Regex is the trust boundary: model values that fail validation are
// dropped, regex-only values are kept. A hallucinated account number
// cannot survive this merge.
func Reconcile(llm, regex Delta) Delta {
	out := Delta{
		BankAccounts:       append([]string(nil), regex.BankAccounts...),
		UPIIDs:             append([]string(nil), regex.UPIIDs...),
		PhoneNumbers:       append([]string(nil), regex.PhoneNumbers...),
		PhishingLinks:      append([]string(nil), regex.PhishingLinks...),
		SuspiciousKeywords: append([]string(nil), regex.SuspiciousKeywords...),
	}

	for _, v := range llm.PhoneNumbers {
		if phone, ok := normalizePhone(strings.TrimSpace(v)); ok {
			out.PhoneNumbers = appendUnique(out.PhoneNumbers, phone)
		}
	}
	for _, v := range llm.BankAccounts {
		v = strings.TrimSpace(v)
		if _, isPhone := normalizePhone(v); isPhone {
			continue
		}
		if isDigits(v) && len(v) >= 9 && len(v) <= 18 {
			out.BankAccounts = appendUnique(out.BankAccounts, v)
		}
	}
	for _, v := range llm.UPIIDs {
		if upi, ok := normalizeUPI(strings.TrimSpace(v)); ok {
			out.UPIIDs = appendUnique(out.UPIIDs, upi)
		}
	}
	for _, v := range llm.PhishingLinks {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			out.PhishingLinks = appendUnique(out.PhishingLinks, v)
		}
	}
	for _, v := range llm.SuspiciousKeywords {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, kw := range ScamKeywords {
			if v == kw {
				out.SuspiciousKeywords = appendUnique(out.SuspiciousKeywords, v)
				break
			}
		}
	}

	return out
}

// normalizePhone reduces an optional country prefix to the bare 10-digit
// local number. The first local digit must be 6-9.
func normalizePhone(run string) (string, bool) {
	if !isDigits(run) {
		return "", false
	}
	switch {
	case len(run) == 10:
	case len(run) == 11 && run[0] == '0':
		run = run[1:]
	case len(run) == 12 && strings.HasPrefix(run, "91"):
		run = run[2:]
	default:
		return "", false
	}
	if len(run) != 10 || run[0] < '6' || run[0] > '9' {
		return "", false
	}
	return run, true
}

func normalizeUPI(tok string) (string, bool) {
	tok = strings.ToLower(tok)
	at := strings.LastIndex(tok, "@")
	if at <= 0 || at == len(tok)-1 {
		return "", false
	}
	if !upiProviders[tok[at+1:]] {
		return "", false
	}
	return tok, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}
