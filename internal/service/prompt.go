package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/octobees/gluten-finder/api/internal/entity"
)

// MaxPromptEstablishments caps how many search results are embedded in a classification prompt.
const MaxPromptEstablishments = 20

// Classification labels the model must use verbatim.
const (
	LabelDedicated = "[dedicated gluten-free]"
	LabelOptions   = "[offers gluten-free options]"
	LabelUnclear   = "[status unclear, verify with restaurant]"
)

// Advisory is shown next to every listing; the model is told not to produce it.
const Advisory = "Reminder: Always call establishments directly to confirm their current gluten-free practices, " +
	"menu, and cross-contamination protocols, especially if you have celiac disease or severe sensitivities. " +
	"Information can change."

var (
	diningSynonyms = []string{"ravintola", "bistro", "brasserie", "trattoria", "osteria", "ristorante", "restaurante", "taverna", "gasthaus", "eatery", "diner"}
	cafeNameCues   = []string{"cafe", "café", "coffee", "espresso", "kahvila", "kohvik", "tea room", "brunch"}
	bakeryNameCues = []string{"bakery", "bakehouse", "boulangerie", "leipomo", "bäckerei", "panadería", "patisserie", "konditori"}
	exclusiveCues  = []string{"100% gluten-free", "dedicated gluten-free", "entirely gluten-free", "gluten-free only", "celiac safe", "totally gf"}
)

// typeRule is the filtering guidance embedded for one establishment type.
type typeRule struct {
	inclusion string
	exclusion string
}

var typeRules = map[entity.EstablishmentType]typeRule{
	entity.TypeRestaurant: {
		inclusion: fmt.Sprintf("Include a candidate if its category tags contain 'restaurant', or if its name uses a recognized regional word for full-service dining (%s).", quoteList(diningSynonyms)),
		exclusion: "Exclude a candidate whose category tags contain 'bakery' but not 'restaurant'.",
	},
	entity.TypeCafe: {
		inclusion: fmt.Sprintf("Include a candidate if its category tags contain 'cafe' or 'coffee', or if it has the 'bakery' tag and its name has a cafe-like cue (%s).", quoteList(cafeNameCues)),
		exclusion: "Exclude a formal restaurant whose name and tags show no cafe cue.",
	},
	entity.TypeBakery: {
		inclusion: "Include a candidate if its category tags contain 'bakery'.",
		exclusion: fmt.Sprintf("Exclude a candidate without the 'bakery' tag unless its name is a strong bakery cue (%s).", quoteList(bakeryNameCues)),
	},
	entity.TypeGeneric: {
		inclusion: "Every candidate is eligible; do not filter by type.",
	},
}

// NoResultsSentence is the fixed reply for searches that yield nothing usable.
func NoResultsSentence(t entity.EstablishmentType, city string) string {
	return fmt.Sprintf("No %s found matching your criteria in %s.", t, city)
}

// FallbackSentence is shown when results exist but could not be classified.
func FallbackSentence(t entity.EstablishmentType, city string, found int) string {
	return fmt.Sprintf(
		"We found %d %s listings in %s but could not check their gluten-free status right now. Review the places below and confirm with each establishment directly.",
		found, strings.ToLower(t.String()), city,
	)
}

// BuildClassificationPrompt renders the instruction sent to the generative text service.
// It is a pure function of its inputs.
func BuildClassificationPrompt(records []entity.Establishment, city string, t entity.EstablishmentType) string {
	if len(records) == 0 {
		return noResultsPrompt(city, t)
	}
	return listingPrompt(records, city, t)
}

func noResultsPrompt(city string, t entity.EstablishmentType) string {
	parts := []string{
		"You are an assistant helping find gluten-free dining.",
		fmt.Sprintf("A search for gluten-free establishments of type '%s' in %s found no places.", t, city),
		fmt.Sprintf("Reply with exactly this sentence and nothing else: %s", NoResultsSentence(t, city)),
	}
	return strings.Join(parts, "\n")
}

func listingPrompt(records []entity.Establishment, city string, t entity.EstablishmentType) string {
	if len(records) > MaxPromptEstablishments {
		records = records[:MaxPromptEstablishments]
	}

	rule, ok := typeRules[t]
	if !ok {
		rule = typeRules[entity.TypeGeneric]
	}

	parts := []string{
		"You are an assistant helping find gluten-free dining.",
		fmt.Sprintf("I am looking for establishments of type '%s' in %s. Each candidate lists its name and the category tags assigned by the places directory:", t, city),
	}
	for _, r := range records {
		parts = append(parts, renderCandidate(r))
	}

	filter := rule.inclusion
	if rule.exclusion != "" {
		filter += " " + rule.exclusion
	}

	parts = append(parts,
		"",
		"Instructions:",
		fmt.Sprintf("1. Keep ONLY the candidates that plausibly are of type '%s', judged from their category tags and name. %s", t, filter),
		"2. Classify the gluten-free status of every kept candidate with exactly one of these labels:",
		fmt.Sprintf("   - %s ONLY if the name explicitly states the whole place is gluten-free (for example %s). The word 'gluten-free' in the name alone is not enough.", LabelDedicated, quoteList(exclusiveCues)),
		fmt.Sprintf("   - %s if the name or tags suggest a regular establishment that likely serves some gluten-free items.", LabelOptions),
		fmt.Sprintf("   - %s if the name and tags give no basis for a judgment.", LabelUnclear),
		fmt.Sprintf("3. Sort the list: every %s entry first, then %s, then %s.", LabelDedicated, LabelOptions, LabelUnclear),
		"4. Output ONLY a numbered list with one line per establishment in the form '<number>. <name> <label>'. Do not include ratings, review counts, addresses, headings, notes or any other text before or after the list.",
		fmt.Sprintf("5. If no candidate matches the type '%s', reply with exactly: %s", t, NoResultsSentence(t, city)),
	)
	return strings.Join(parts, "\n")
}

func renderCandidate(r entity.Establishment) string {
	tags := append([]string(nil), r.CategoryTags...)
	sort.Strings(tags)
	return fmt.Sprintf("- Name: %s, Category tags: [%s]", singleLine(r.Name), strings.Join(tags, ", "))
}

func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}
