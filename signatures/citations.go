package signatures

// Citation is one regulatory reference the certificate expands a violation
// code into.
type Citation struct {
	Code    string
	Article string
	Summary string
}

// ViolationCitations maps a violation type (as set on an AuditFinding or a
// pre-consent tracking hit) to the regulatory codes it implicates.
var ViolationCitations = map[string][]string{
	"PRE_CONSENT_TRACKING":  {"GDPR_ART6", "GDPR_ART7"},
	"PARITY_OF_EASE":        {"EDPB_GL32020", "GDPR_ART7_3"},
	"GRANULARITY":           {"GDPR_ART7_1", "EDPB_GL32020"},
	"TRANSPARENCY":          {"GDPR_ART13", "GDPR_ART12"},
	"ACCESSIBILITY":         {"EAA_2019_882"},
	"GPC_IGNORED":           {"CCPA_1798_135"},
	"UI_BIAS":               {"EDPB_GL32020"},
	"NON_ADEQUATE_TRANSFER": {"GDPR_ART44", "GDPR_ART46"},
}

// Citations is the static regulatory citation database, keyed by code.
var Citations = map[string]Citation{
	"GDPR_ART6":     {Code: "GDPR_ART6", Article: "GDPR Art. 6", Summary: "Lawfulness of processing"},
	"GDPR_ART7":     {Code: "GDPR_ART7", Article: "GDPR Art. 7", Summary: "Conditions for consent"},
	"GDPR_ART7_1":   {Code: "GDPR_ART7_1", Article: "GDPR Art. 7(1)", Summary: "Demonstrable consent"},
	"GDPR_ART7_3":   {Code: "GDPR_ART7_3", Article: "GDPR Art. 7(3)", Summary: "Withdrawal as easy as giving consent"},
	"GDPR_ART12":    {Code: "GDPR_ART12", Article: "GDPR Art. 12", Summary: "Transparent information"},
	"GDPR_ART13":    {Code: "GDPR_ART13", Article: "GDPR Art. 13", Summary: "Information to be provided"},
	"GDPR_ART44":    {Code: "GDPR_ART44", Article: "GDPR Art. 44", Summary: "General principle for transfers"},
	"GDPR_ART46":    {Code: "GDPR_ART46", Article: "GDPR Art. 46", Summary: "Transfers subject to safeguards"},
	"EDPB_GL32020":  {Code: "EDPB_GL32020", Article: "EDPB Guidelines 3/2020", Summary: "Dark patterns in social media interfaces"},
	"EAA_2019_882":  {Code: "EAA_2019_882", Article: "Directive (EU) 2019/882", Summary: "European Accessibility Act"},
	"CCPA_1798_135": {Code: "CCPA_1798_135", Article: "Cal. Civ. Code 1798.135", Summary: "Opt-out mechanisms and GPC"},
}

// ExpandCitations resolves a violation type to its full Citation records.
func ExpandCitations(violationType string) []Citation {
	codes := ViolationCitations[violationType]
	out := make([]Citation, 0, len(codes))
	for _, c := range codes {
		if cit, ok := Citations[c]; ok {
			out = append(out, cit)
		}
	}
	return out
}
