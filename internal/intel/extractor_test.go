package intel

import (
	"reflect"
	"testing"
)

func TestExtract_ScamMessage(t *testing.T) {
	msg := `Your account will be blocked today! Verify immediately. Call +91 9876543210 or send ₹1 to 9876543210@paytm`

	d := Extract(msg)

	if !reflect.DeepEqual(d.PhoneNumbers, []string{"9876543210"}) {
		t.Errorf("expected phone 9876543210, got %v", d.PhoneNumbers)
	}
	if !reflect.DeepEqual(d.UPIIDs, []string{"9876543210@paytm"}) {
		t.Errorf("expected upi 9876543210@paytm, got %v", d.UPIIDs)
	}
	if len(d.BankAccounts) != 0 {
		t.Errorf("phone digits must not be classified as bank account, got %v", d.BankAccounts)
	}
	if len(d.SuspiciousKeywords) == 0 {
		t.Error("expected suspicious keywords")
	}
}

func TestExtract_PhonePrefixes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare", "call 9876543210 now", "9876543210"},
		{"plus country code", "call +919876543210", "9876543210"},
		{"country code no plus", "call 919876543210", "9876543210"},
		{"leading zero", "call 09876543210", "9876543210"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Extract(tt.text)
			if len(d.PhoneNumbers) != 1 || d.PhoneNumbers[0] != tt.want {
				t.Errorf("Extract(%q).PhoneNumbers = %v, want [%s]", tt.text, d.PhoneNumbers, tt.want)
			}
		})
	}
}

func TestExtract_BankAccountVsPhone(t *testing.T) {
	// 14 digits: too long for a phone, valid account length.
	d := Extract("transfer to account 12345678901234 today")
	if len(d.BankAccounts) != 1 || d.BankAccounts[0] != "12345678901234" {
		t.Errorf("expected bank account, got %v", d.BankAccounts)
	}

	// 10 digits starting with 5: not a valid mobile number, so account.
	d = Extract("account 5876543210")
	if len(d.PhoneNumbers) != 0 {
		t.Errorf("5xx number is not a phone, got %v", d.PhoneNumbers)
	}
	if len(d.BankAccounts) != 1 {
		t.Errorf("expected 10-digit non-phone as account, got %v", d.BankAccounts)
	}
}

func TestExtract_RejectsMailDomains(t *testing.T) {
	d := Extract("write to scammer@gmail.com or pay ravi@ybl")
	if !reflect.DeepEqual(d.UPIIDs, []string{"ravi@ybl"}) {
		t.Errorf("expected only ravi@ybl, got %v", d.UPIIDs)
	}
}

func TestExtract_URLs(t *testing.T) {
	d := Extract("click https://kyc-update.example.in/verify now!")
	if len(d.PhishingLinks) != 1 || d.PhishingLinks[0] != "https://kyc-update.example.in/verify" {
		t.Errorf("unexpected links %v", d.PhishingLinks)
	}
}

func TestExtract_BenignText(t *testing.T) {
	d := Extract("see you at lunch tomorrow")
	if !d.Empty() {
		t.Errorf("expected empty delta for benign text, got %+v", d)
	}
}

func TestReconcile_DropsInvalidLLMValues(t *testing.T) {
	llm := Delta{
		BankAccounts: []string{"123", "99887766554433", "9876543210"},
		UPIIDs:       []string{"victim@gmail", "fraud@paytm"},
		PhoneNumbers: []string{"12345", "9123456789"},
		PhishingLinks: []string{
			"ftp://nope.example",
			"http://trap.example/login",
		},
		SuspiciousKeywords: []string{"otp", "totally-novel-word"},
	}

	got := Reconcile(llm, Delta{})

	if !reflect.DeepEqual(got.BankAccounts, []string{"99887766554433"}) {
		t.Errorf("bank accounts = %v", got.BankAccounts)
	}
	if !reflect.DeepEqual(got.UPIIDs, []string{"fraud@paytm"}) {
		t.Errorf("upi ids = %v", got.UPIIDs)
	}
	if !reflect.DeepEqual(got.PhoneNumbers, []string{"9123456789"}) {
		t.Errorf("phones = %v", got.PhoneNumbers)
	}
	if !reflect.DeepEqual(got.PhishingLinks, []string{"http://trap.example/login"}) {
		t.Errorf("links = %v", got.PhishingLinks)
	}
	if !reflect.DeepEqual(got.SuspiciousKeywords, []string{"otp"}) {
		t.Errorf("keywords = %v", got.SuspiciousKeywords)
	}
}

func TestReconcile_KeepsRegexOnlyValues(t *testing.T) {
	regex := Extract("send to 9876543210@paytm")
	got := Reconcile(Delta{}, regex)

	if !reflect.DeepEqual(got.UPIIDs, []string{"9876543210@paytm"}) {
		t.Errorf("regex-extracted upi missing from reconciled delta: %v", got.UPIIDs)
	}
}

func TestKeywordHits(t *testing.T) {
	if hits := KeywordHits("URGENT: your account is blocked, verify now"); hits < 3 {
		t.Errorf("expected at least 3 keyword hits, got %d", hits)
	}
	if hits := KeywordHits("movie night on friday?"); hits != 0 {
		t.Errorf("expected 0 hits for benign text, got %d", hits)
	}
}
