package intel

import "sort"

// Score weights per extracted item, with each category's contribution
// capped so near-duplicate values cannot inflate the total.
const (
	weightBankAccount = 3.0
	weightUPIID       = 3.0
	weightLink        = 2.0
	weightPhone       = 1.0
	weightKeyword     = 0.5

	categoryCap = 3 // items per category that count toward the score
)

// Intelligence is the append-only evidence log for one session: five
// deduplicated sets of normalized values. Items are only ever added, and
// a value that parses as a phone number can never enter the bank set.
type Intelligence struct {
	bankAccounts  map[string]bool
	upiIDs        map[string]bool
	phoneNumbers  map[string]bool
	phishingLinks map[string]bool
	keywords      map[string]bool
}

func NewIntelligence() *Intelligence {
	return &Intelligence{
		bankAccounts:  make(map[string]bool),
		upiIDs:        make(map[string]bool),
		phoneNumbers:  make(map[string]bool),
		phishingLinks: make(map[string]bool),
		keywords:      make(map[string]bool),
	}
}

// Merge folds a delta into the sets. Re-applying the same delta is a
// no-op; the return value is the number of genuinely new items.
func (in *Intelligence) Merge(d Delta) int {
	added := 0
	for _, v := range d.PhoneNumbers {
		if phone, ok := normalizePhone(v); ok && !in.phoneNumbers[phone] {
			in.phoneNumbers[phone] = true
			added++
		}
	}
	for _, v := range d.BankAccounts {
		// Phone/bank mutual exclusion: route misfiled values to the
		// phone set rather than dropping them.
		if phone, ok := normalizePhone(v); ok {
			if !in.phoneNumbers[phone] {
				in.phoneNumbers[phone] = true
				added++
			}
			continue
		}
		if isDigits(v) && len(v) >= 9 && len(v) <= 18 && !in.bankAccounts[v] {
			in.bankAccounts[v] = true
			added++
		}
	}
	for _, v := range d.UPIIDs {
		if upi, ok := normalizeUPI(v); ok && !in.upiIDs[upi] {
			in.upiIDs[upi] = true
			added++
		}
	}
	for _, v := range d.PhishingLinks {
		if v != "" && !in.phishingLinks[v] {
			in.phishingLinks[v] = true
			added++
		}
	}
	for _, v := range d.SuspiciousKeywords {
		if v != "" && !in.keywords[v] {
			in.keywords[v] = true
			added++
		}
	}
	return added
}

func (in *Intelligence) BankAccounts() []string  { return sortedKeys(in.bankAccounts) }
func (in *Intelligence) UPIIDs() []string        { return sortedKeys(in.upiIDs) }
func (in *Intelligence) PhoneNumbers() []string  { return sortedKeys(in.phoneNumbers) }
func (in *Intelligence) PhishingLinks() []string { return sortedKeys(in.phishingLinks) }
func (in *Intelligence) Keywords() []string      { return sortedKeys(in.keywords) }

// Total counts distinct items across all five sets.
func (in *Intelligence) Total() int {
	return len(in.bankAccounts) + len(in.upiIDs) + len(in.phoneNumbers) +
		len(in.phishingLinks) + len(in.keywords)
}

// Score is the weighted intelligence value that drives session
// termination: each bank account +3, UPI ID +3, link +2, phone +1,
// keyword +0.5, counting at most three items per category.
func (in *Intelligence) Score() float64 {
	score := 0.0
	score += weightBankAccount * float64(capCount(len(in.bankAccounts)))
	score += weightUPIID * float64(capCount(len(in.upiIDs)))
	score += weightLink * float64(capCount(len(in.phishingLinks)))
	score += weightPhone * float64(capCount(len(in.phoneNumbers)))
	score += weightKeyword * float64(capCount(len(in.keywords)))
	return score
}

// Gap names an intelligence category that is still missing.
type Gap string

const (
	GapUPI   Gap = "upi id"
	GapBank  Gap = "bank account"
	GapLink  Gap = "link"
	GapPhone Gap = "phone number"
)

// Gaps returns missing categories in extraction priority order: UPI IDs
// and bank accounts first, then links, then phone numbers.
func (in *Intelligence) Gaps() []Gap {
	var gaps []Gap
	if len(in.upiIDs) == 0 {
		gaps = append(gaps, GapUPI)
	}
	if len(in.bankAccounts) == 0 {
		gaps = append(gaps, GapBank)
	}
	if len(in.phishingLinks) == 0 {
		gaps = append(gaps, GapLink)
	}
	if len(in.phoneNumbers) == 0 {
		gaps = append(gaps, GapPhone)
	}
	return gaps
}

// Completeness is the fraction of the four hard categories (keywords
// excluded) with at least one item collected.
func (in *Intelligence) Completeness() float64 {
	return float64(4-len(in.Gaps())) / 4.0
}

func capCount(n int) int {
	if n > categoryCap {
		return categoryCap
	}
	return n
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
