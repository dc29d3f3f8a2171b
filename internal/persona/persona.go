// Package persona owns the victim characters the agent plays and the
// scam taxonomy used to cast them. Classification is keyword based so it
// costs nothing; the generation path refines it when it can.
package persona

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/baitline/baitline/internal/stage"
)

// ScamType is the fraud category inferred for a session.
type ScamType string

const (
	BankFraud   ScamType = "bank_fraud"
	UPIFraud    ScamType = "upi_fraud"
	Phishing    ScamType = "phishing"
	JobScam     ScamType = "job_scam"
	Lottery     ScamType = "lottery"
	Investment  ScamType = "investment"
	TechSupport ScamType = "tech_support"
	Other       ScamType = "other"
)

// Ordered so the more specific categories win ties against the broad ones.
var scamSignals = []struct {
	st       ScamType
	keywords []string
}{
	{UPIFraud, []string{"upi", "paytm", "phonepe", "gpay", "google pay", "collect request", "qr code"}},
	{JobScam, []string{"job", "work from home", "salary", "hiring", "part time", "registration fee", "interview"}},
	{Lottery, []string{"lottery", "winner", "won", "prize", "lucky draw", "congratulations", "claim your"}},
	{Investment, []string{"investment", "returns", "profit", "trading", "stock", "crypto", "double your"}},
	{TechSupport, []string{"virus", "computer", "microsoft", "tech support", "remote access", "anydesk", "teamviewer"}},
	{Phishing, []string{"click", "link", "login", "password", "verify your", "update your", "http"}},
	{BankFraud, []string{"bank", "account", "kyc", "debit card", "credit card", "atm", "blocked", "suspended", "otp"}},
}

// Classify maps a message to a scam category by keyword vote.
func Classify(text string) ScamType {
	lower := strings.ToLower(text)
	best := Other
	bestHits := 0
	for _, sig := range scamSignals {
		hits := 0
		for _, kw := range sig.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = sig.st
			bestHits = hits
		}
	}
	return best
}

// Persona is a victim character the agent commits to for a whole session.
type Persona string

const (
	ElderlyConfused    Persona = "elderly_confused"
	BusyProfessional   Persona = "busy_professional"
	CuriousStudent     Persona = "curious_student"
	TechNaiveParent    Persona = "tech_naive_parent"
	DesperateJobSeeker Persona = "desperate_job_seeker"
)

var candidates = map[ScamType][]Persona{
	BankFraud:   {ElderlyConfused, TechNaiveParent},
	UPIFraud:    {ElderlyConfused, TechNaiveParent},
	Phishing:    {BusyProfessional, CuriousStudent},
	JobScam:     {DesperateJobSeeker},
	Lottery:     {ElderlyConfused, CuriousStudent},
	Investment:  {BusyProfessional, CuriousStudent},
	TechSupport: {ElderlyConfused, TechNaiveParent},
	Other:       {ElderlyConfused, BusyProfessional, CuriousStudent, TechNaiveParent},
}

// Candidates returns the personas suited to a scam category.
func Candidates(st ScamType) []Persona {
	if c, ok := candidates[st]; ok {
		return c
	}
	return candidates[Other]
}

// Pick chooses a persona for the session. rng lets tests pin the choice.
func Pick(st ScamType, rng *rand.Rand) Persona {
	c := Candidates(st)
	if len(c) == 1 {
		return c[0]
	}
	return c[rng.Intn(len(c))]
}

var prompts = map[Persona]string{
	ElderlyConfused:    "You are Shanti, a 68-year-old retired school teacher. You barely understand smartphones, type slowly with small mistakes, trust official-sounding people, and often ask for steps to be repeated. You mention your late husband handled all money matters.",
	BusyProfessional:   "You are Rajesh, a 34-year-old sales manager who is always between meetings. You reply in short bursts, get distracted mid-task, and keep promising to finish the process later. You worry about your account but never quite have time.",
	CuriousStudent:     "You are Priya, a 21-year-old college student. You are chatty and curious, ask lots of questions about how things work, and are excited but broke. You want to be sure before you do anything with your small savings.",
	TechNaiveParent:    "You are Sunita, a 45-year-old homemaker. Your son usually handles anything on the phone. You are cooperative but slow, frequently say you will ask your son, and mix up app names.",
	DesperateJobSeeker: "You are Amit, a 26-year-old who lost his job six months ago. You are eager, almost too eager, about any offer. You ask about salary and joining dates, but you are nervous about paying fees upfront.",
}

// Prompt returns the character sheet injected into the generation request.
func (p Persona) Prompt() string {
	if s, ok := prompts[p]; ok {
		return s
	}
	return prompts[ElderlyConfused]
}

// intent buckets used to pick a canned reply when generation is
// unavailable.
type intent int

const (
	intentGeneric intent = iota
	intentOTP
	intentPayment
	intentLink
	intentThreat
)

func classifyIntent(lower string) intent {
	switch {
	case strings.Contains(lower, "otp") || strings.Contains(lower, "pin") || strings.Contains(lower, "password") || strings.Contains(lower, "cvv"):
		return intentOTP
	case strings.Contains(lower, "pay") || strings.Contains(lower, "transfer") || strings.Contains(lower, "send money") || strings.Contains(lower, "amount") || strings.Contains(lower, "fee"):
		return intentPayment
	case strings.Contains(lower, "http") || strings.Contains(lower, "click") || strings.Contains(lower, "link"):
		return intentLink
	case strings.Contains(lower, "police") || strings.Contains(lower, "arrest") || strings.Contains(lower, "legal") || strings.Contains(lower, "blocked"):
		return intentThreat
	default:
		return intentGeneric
	}
}

// Canned replies keyed by persona and intent. Several variants per slot
// so back-to-back fallbacks do not read identical.
var fallbacks = map[Persona]map[intent][]string{
	ElderlyConfused: {
		intentOTP: {
			"OTP? I got some message with numbers but my reading glasses are in the other room. Which numbers do you need exactly?",
			"I am not understanding this OTP thing. My phone shows many messages. Can you explain slowly please?",
		},
		intentPayment: {
			"I want to do the payment but I only know how to go to the bank branch. Which account number should I tell them?",
			"My pension comes on the 1st only. Where do I send it? Write the full details, I will note them down.",
		},
		intentLink: {
			"I pressed the blue words but nothing happened. My grandson set up this phone, should I call him?",
			"The link is not opening on my phone. Is there some other way, like a phone number I can call?",
		},
		intentThreat: {
			"Oh god, police? I have never done anything wrong in my life. Please tell me what to do, sir.",
			"Please don't block my account, my pension comes there. What exactly should I do first?",
		},
		intentGeneric: {
			"Hello? Sorry, I am a little slow with these messages. Can you tell me again what this is about?",
			"I see. And which office are you calling from, beta? I want to write it down properly.",
		},
	},
	BusyProfessional: {
		intentOTP: {
			"In a meeting right now. Which OTP, the one from this morning? Send me the exact details and I'll check after.",
			"Got like 5 OTPs today from different things. Tell me which service it's for and I'll look.",
		},
		intentPayment: {
			"Fine, I'll do the transfer tonight. Send me the account number and IFSC so I can set it up.",
			"Can't do netbanking from office laptop. Share the UPI ID, I'll try from my phone between calls.",
		},
		intentLink: {
			"That link is blocked on the corporate network. Is there a direct number or UPI I can use instead?",
			"Will open it when I'm off VPN. What's it asking for, just so I'm ready?",
		},
		intentThreat: {
			"Look, I don't have time for this today. Just tell me the fastest way to sort it out.",
			"Blocked? That's the account my salary hits. What do you need from me, quickly.",
		},
		intentGeneric: {
			"Sorry, crazy day. Remind me what this was regarding?",
			"Okay, noted. Send me everything in one message and I'll handle it this evening.",
		},
	},
	CuriousStudent: {
		intentOTP: {
			"Wait, my professor said never to share OTPs lol. But how does your verification work then? Genuinely curious.",
			"Hmm the OTP message says don't share it with anyone. How do I know you're really from the bank?",
		},
		intentPayment: {
			"I only have like 2000 in my account, where exactly do I send it? UPI or account number?",
			"Before I pay anything, can you send your official UPI ID so I can check it's genuine?",
		},
		intentLink: {
			"The link looks kind of sketchy ngl. Can you send the official site or a number I can verify?",
			"My browser flagged that link. Do you have another one?",
		},
		intentThreat: {
			"Arrest?? I'm literally a student. Okay okay, what's the process, step by step?",
			"Wow that sounds serious. Which police station is handling this? I want to tell my dad.",
		},
		intentGeneric: {
			"Interesting! How does this whole thing work exactly?",
			"Okay but first, which company are you from? I want to google it real quick.",
		},
	},
	TechNaiveParent: {
		intentOTP: {
			"My son told me never to tell the OTP. But you are from the bank na? Let me ask him once and come back.",
			"The number message came but I don't know which app it is for. Can you stay on while I find it?",
		},
		intentPayment: {
			"I only know PhonePe, my son installed it. Tell me the UPI ID and I will try, slowly.",
			"For sending money I need my son's help. Give me the account details, I will keep them ready.",
		},
		intentLink: {
			"I clicked and some page is asking many things. Should I fill everything? What is it exactly?",
			"The phone says the page is not safe. You are sure it is the correct link?",
		},
		intentThreat: {
			"Please sir, don't block anything. My husband's salary comes in that account. What should I do?",
			"Police? Oh no. Let me just call my son first, he handles all these matters.",
		},
		intentGeneric: {
			"Ji, tell me. But please explain simply, I am not good with these phone things.",
			"Acha. And this is from which bank you said? I will write it on paper.",
		},
	},
	DesperateJobSeeker: {
		intentOTP: {
			"For the job verification? Okay but which OTP, I got two messages. Also when do I hear about the joining date?",
			"Sure, one minute. And after this verification the offer letter comes, right?",
		},
		intentPayment: {
			"Registration fee is fine if the job is confirmed. Which account do I pay to? Send the full details.",
			"I can arrange the fee by tomorrow. Share the UPI ID and also the company's HR number please.",
		},
		intentLink: {
			"The portal link isn't loading here. Can you share the company website and the HR contact?",
			"Opened it, it wants my documents. Is there an email I should send them to instead?",
		},
		intentThreat: {
			"Please don't cancel my application, I really need this job. Tell me what to do.",
			"I'll cooperate fully. Just confirm the position is still open for me.",
		},
		intentGeneric: {
			"Yes I'm very interested! What's the salary and when can I start?",
			"Thank you for considering me. What are the next steps?",
		},
	},
}

// Fallback returns a canned in-character reply for the message, used when
// the generation path is skipped or fails. rng picks among variants, but
// a line already used within the cooldown window yields to another one.
func Fallback(p Persona, st stage.Stage, inbound string, messageCount int, tactics *stage.TacticLog, rng *rand.Rand) string {
	byIntent, ok := fallbacks[p]
	if !ok {
		byIntent = fallbacks[ElderlyConfused]
	}
	in := classifyIntent(strings.ToLower(inbound))

	// Late-stage sessions stall rather than react, unless directly
	// threatened.
	if st >= stage.Prolongation && in != intentThreat {
		return pickLine("prolong", prolongationLines, messageCount, tactics, rng)
	}

	variants := byIntent[in]
	if len(variants) == 0 {
		variants = byIntent[intentGeneric]
	}
	return pickLine(fmt.Sprintf("%s:%d", p, in), variants, messageCount, tactics, rng)
}

// pickLine chooses a variant that is off cooldown, starting from a random
// offset. With every variant on cooldown the random one is used anyway.
func pickLine(key string, variants []string, messageCount int, tactics *stage.TacticLog, rng *rand.Rand) string {
	start := rng.Intn(len(variants))
	idx := start
	for i := 0; i < len(variants); i++ {
		j := (start + i) % len(variants)
		if tactics.OK(fmt.Sprintf("%s:%d", key, j), messageCount) {
			idx = j
			break
		}
	}
	tactics.Note(fmt.Sprintf("%s:%d", key, idx), messageCount)
	return variants[idx]
}

// Neutral returns a non-committal reply for messages that have not
// tripped detection yet. No character is committed before a session is
// confirmed as a scam.
func Neutral(rng *rand.Rand) string {
	return neutralLines[rng.Intn(len(neutralLines))]
}

var neutralLines = []string{
	"Sorry, who is this?",
	"I think you may have the wrong number. What is this regarding?",
	"Okay. Can you tell me more about what this is about?",
	"Hmm, I don't remember signing up for anything. What is this?",
}

var prolongationLines = []string{
	"I was just about to do it but my phone battery died. Charging now, give me a little time.",
	"The bank app is showing some error, says try after some time. I will do it today itself.",
	"I am at a relative's place, the network here is very bad. I will complete it once I reach home.",
}
