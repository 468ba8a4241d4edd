package interfaces

// Bill label translations. German is the default for Swiss collectives,
// English is the fallback.
var labels = map[string]map[string]string{
	"en": {
		"bill_title":       "Energy Bill",
		"file_prefix":      "bill",
		"from":             "FROM",
		"to":               "TO",
		"billing_period":   "Billing period",
		"consumption_cost": "Consumption & Cost",
		"production":       "Production & Revenue",
		"local_solar":      "Local solar",
		"grid":             "Grid",
		"sold_locally":     "Sold locally",
		"exported_to_grid": "Exported to grid",
		"additional_fees":  "Additional fees",
		"vat":              "VAT",
		"total":            "Total",
		"amount_due":       "Amount due",
		"credit":           "Credit",
		"day":              "Day",
		"daily_detail":     "Daily detail",
	},
	"de": {
		"bill_title":       "Energieabrechnung",
		"file_prefix":      "abrechnung",
		"from":             "VON",
		"to":               "AN",
		"billing_period":   "Abrechnungsperiode",
		"consumption_cost": "Verbrauch & Kosten",
		"production":       "Produktion & Ertrag",
		"local_solar":      "Lokaler Solarstrom",
		"grid":             "Netzstrom",
		"sold_locally":     "Lokal verkauft",
		"exported_to_grid": "Netzeinspeisung",
		"additional_fees":  "Zusatzgebühren",
		"vat":              "MwSt",
		"total":            "Total",
		"amount_due":       "Rechnungsbetrag",
		"credit":           "Gutschrift",
		"day":              "Tag",
		"daily_detail":     "Tagesdetail",
	},
}

var monthNames = map[string][]string{
	"en": {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
}

func translations(language string) map[string]string {
	if t, ok := labels[language]; ok {
		return t
	}
	return labels["en"]
}

func monthName(language string, month int) string {
	names, ok := monthNames[language]
	if !ok {
		names = monthNames["en"]
	}
	if month < 1 || month > 12 {
		return ""
	}
	return names[month-1]
}
