package shopping

import "strings"

// Categorize proposes one of the seeded category names for an inventory
// item, or "" when nothing matches. Whole-name matches win over keyword
// matches; keywords are tried in table order, most specific first.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return ""
	}
	if cat, ok := wholeNames[name]; ok {
		return cat
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return ""
}

type keywordRule struct {
	category string
	keywords []string
}

// keywordRules resolves names containing a keyword. Phrases that would be
// misread by a shorter keyword ("peanut butter", "ice cream") sit in earlier rules.
var keywordRules = []keywordRule{
	{"Pantry", []string{"peanut butter", "olive oil", "maple syrup", "soy sauce", "hot sauce", "tomato sauce", "canned"}},
	{"Frozen", []string{"frozen", "ice cream", "popsicle"}},
	{"Meat & Seafood", []string{"chicken", "ground beef", "ground turkey", "pork", "steak", "bacon", "sausage", "salmon", "shrimp", "tuna", "fish"}},
	{"Dairy", []string{"cream cheese", "sour cream", "yogurt", "cheese", "milk", "butter", "cream", "egg"}},
	{"Beverages", []string{"sparkling water", "juice", "coffee", "soda", "water", "beer", "wine", "drink", "tea"}},
	{"Produce", []string{"salad", "spinach", "lettuce", "kale", "apple", "banana", "berries", "berry", "tomato", "potato", "onion", "pepper", "carrot", "fruit", "herb"}},
	{"Bakery", []string{"sourdough", "bread", "bagel", "tortilla", "muffin", "croissant", "bun", "roll"}},
	{"Pantry", []string{"cereal", "oatmeal", "rice", "pasta", "noodle", "flour", "sugar", "spice", "sauce", "broth", "soup", "bean", "lentil"}},
	{"Snacks", []string{"granola bar", "trail mix", "chip", "cracker", "cookie", "popcorn", "pretzel", "candy", "chocolate", "snack"}},
	{"Household", []string{"paper towel", "toilet paper", "trash bag", "dish soap", "laundry", "detergent", "cleaner", "sponge", "foil", "battery", "batteries"}},
	{"Personal Care", []string{"body wash", "shampoo", "conditioner", "toothpaste", "toothbrush", "deodorant", "lotion", "sunscreen", "razor", "tissue"}},
}

// wholeNames covers common names that keyword matching gets wrong or misses.
var wholeNames = map[string]string{
	"eggs":         "Dairy",
	"ham":          "Meat & Seafood",
	"beef":         "Meat & Seafood",
	"turkey":       "Meat & Seafood",
	"lamb":         "Meat & Seafood",
	"garlic":       "Produce",
	"avocado":      "Produce",
	"avocados":     "Produce",
	"lemons":       "Produce",
	"limes":        "Produce",
	"grapes":       "Produce",
	"mushrooms":    "Produce",
	"cucumber":     "Produce",
	"broccoli":     "Produce",
	"ginger":       "Produce",
	"salt":         "Pantry",
	"honey":        "Pantry",
	"oil":          "Pantry",
	"vinegar":      "Pantry",
	"ketchup":      "Pantry",
	"mustard":      "Pantry",
	"mayonnaise":   "Pantry",
	"jam":          "Pantry",
	"nuts":         "Pantry",
	"pita":         "Bakery",
	"soap":         "Personal Care",
	"floss":        "Personal Care",
	"napkins":      "Household",
	"bleach":       "Household",
	"light bulbs":  "Household",
	"plastic wrap": "Household",
}
