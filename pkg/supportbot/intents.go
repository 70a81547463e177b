package supportbot

const (
	IntentRefund        = "Refund request"
	IntentTechnical     = "Technical issue"
	IntentBilling       = "Billing inquiry"
	IntentCancellation  = "Cancellation request"
	IntentProductQuery  = "Product inquiry"
	IntentGreeting      = "Greeting"
	SubIntentWarranty   = "Warranty"
	SubIntentAvailable  = "Availability"
	SubIntentSpecs      = "Specification"
	SlotProductName     = "product_name"
	SlotOrderID         = "order_id"
	SlotReason          = "reason"
	SlotIssue           = "issue_description"
	defaultThreshold    = 0.4
	greetingReply       = "Hi there! How can I assist you today?"
	escalationMessage   = "Sorry, I couldn't understand. Escalating to human support."
	escalatedReply      = "Escalated"
	missingSlotTemplate = "Please provide: %s"
)

type intentKeywords struct {
	intent   string
	keywords []string
}

// intentTable is ordered; the fallback matcher takes the first hit.
var intentTable = []intentKeywords{
	{IntentRefund, []string{
		"return", "refund", "get my money back", "money refund",
		"wrong product", "want refund", "replace", "replacement",
	}},
	{IntentTechnical, []string{
		"not working", "broken", "issue", "problem", "error",
		"damaged", "malfunction", "doesn't start", "crashed",
		"stuck", "hang", "overheating", "battery issue",
	}},
	{IntentBilling, []string{
		"bill", "payment", "charged", "invoice", "extra charge",
		"wrong amount", "billing", "double charged", "not received bill",
	}},
	{IntentCancellation, []string{
		"cancel", "cancellation", "stop order", "don't want", "don’t want",
		"terminate", "abort order", "hold my order",
	}},
	{IntentProductQuery, []string{
		"specification", "specs", "features", "available",
		"availability", "warranty", "details", "info",
		"in stock", "how long warranty", "is it available",
	}},
}

var greetingKeywords = []string{"hello", "hi", "hey", "good morning", "good evening", "greetings"}

var subIntentTable = []intentKeywords{
	{SubIntentWarranty, []string{"warranty", "guarantee"}},
	{SubIntentAvailable, []string{"available", "availability", "in stock", "stock"}},
	{SubIntentSpecs, []string{"specification", "specs", "features", "details", "info"}},
}

// intentSlots lists the slots each base intent needs, in the order the bot
// asks for them.
var intentSlots = map[string][]string{
	IntentRefund:       {SlotProductName, SlotOrderID, SlotReason},
	IntentTechnical:    {SlotProductName, SlotOrderID, SlotIssue},
	IntentBilling:      {SlotOrderID},
	IntentCancellation: {SlotOrderID},
	IntentProductQuery: {SlotProductName, SlotOrderID},
}

var productKeywords = []string{"tv", "laptop", "fan", "shirt", "book", "phone", "headphones", "router"}

var problemKeywords = []string{"not working", "broken", "damaged", "defective", "stopped working"}
