// Package heuristic implements the Tier-2 guesser: a static merchant
// keyword taxonomy resolved against the user's own bucket names.
package heuristic

// taxonomyEntry maps a generic category to common merchant keywords.
// Entries are a slice, not a map, so evaluation order is deterministic.
type taxonomyEntry struct {
	Generic  string
	Keywords []string
}

// taxonomy is the static global keyword taxonomy. Keywords are already
// normalized (lower case, single spaces).
var taxonomy = []taxonomyEntry{
	{
		Generic: "Groceries",
		Keywords: []string{
			"woolworths", "coles", "aldi", "iga", "safeway", "kroger",
			"trader joe", "whole foods", "tesco", "sainsbury", "lidl",
			"costco", "supermarket", "grocery",
		},
	},
	{
		Generic: "Dining",
		Keywords: []string{
			"mcdonald", "kfc", "burger king", "subway", "domino",
			"starbucks", "dunkin", "chipotle", "nando", "pizza",
			"restaurant", "cafe", "coffee", "doordash", "ubereats",
			"uber eats", "deliveroo", "grubhub", "menulog",
		},
	},
	{
		Generic: "Transport",
		Keywords: []string{
			"uber", "lyft", "taxi", "shell", "bp ", "chevron", "caltex",
			"ampol", "exxon", "mobil", "opal", "myki", "transit",
			"parking", "toll",
		},
	},
	{
		Generic: "Utilities",
		Keywords: []string{
			"agl", "origin energy", "energyaustralia", "comcast",
			"verizon", "at&t", "vodafone", "telstra", "optus",
			"water corp", "electric", "electricity", "gas bill",
			"internet", "broadband",
		},
	},
	{
		Generic: "Entertainment",
		Keywords: []string{
			"netflix", "spotify", "disney", "hulu", "youtube premium",
			"prime video", "hbo", "stan", "binge", "steam", "playstation",
			"nintendo", "xbox", "cinema", "ticketek", "ticketmaster",
		},
	},
	{
		Generic: "Shopping",
		Keywords: []string{
			"amazon", "ebay", "etsy", "target", "kmart", "walmart",
			"big w", "ikea", "jb hi-fi", "best buy", "myer", "david jones",
		},
	},
	{
		Generic: "Health",
		Keywords: []string{
			"pharmacy", "chemist", "priceline", "cvs", "walgreens",
			"medical", "dental", "physio", "optometr", "hospital",
			"medicare", "bupa",
		},
	},
	{
		Generic: "Travel",
		Keywords: []string{
			"qantas", "jetstar", "virgin australia", "delta air",
			"united air", "american air", "ryanair", "easyjet", "airbnb",
			"booking.com", "expedia", "hotel", "hostel", "motel",
		},
	},
	{
		Generic: "Income",
		Keywords: []string{
			"payroll", "salary", "direct deposit", "pay run", "wages",
			"dividend", "interest paid",
		},
	},
	{
		Generic: "Fees",
		Keywords: []string{
			"monthly fee", "account fee", "overdraft", "atm fee",
			"intl txn fee", "late fee", "annual fee",
		},
	},
}

// aliases is a fixed table mapping a generic category to synonyms users
// commonly pick as bucket names. All entries are normalized.
var aliases = map[string][]string{
	"Groceries":     {"food", "food & groceries", "supermarket", "groceries & food", "food shopping"},
	"Dining":        {"eating out", "restaurants", "food & drink", "takeaway", "takeout", "dining out"},
	"Transport":     {"transportation", "travel & transport", "car", "fuel", "petrol", "commute"},
	"Utilities":     {"bills", "bills & utilities", "household bills", "power & water"},
	"Entertainment": {"fun", "leisure", "subscriptions", "streaming", "hobbies"},
	"Shopping":      {"retail", "general shopping", "online shopping", "stuff"},
	"Health":        {"healthcare", "medical", "health & fitness", "wellness"},
	"Travel":        {"holidays", "vacation", "trips", "flights & hotels"},
	"Income":        {"salary", "pay", "earnings", "wages"},
	"Fees":          {"bank fees", "charges", "fees & charges"},
}
