package enrich

// defaultTopicRules is the built-in topic keyword table, used when the
// sources config carries none. Keywords mix French and English because
// the monitored outlets do.
var defaultTopicRules = map[string][]string{
	"Markets": {"bourse", "equity", "stocks", "indice", "obligations", "yield", "volatilité", "ETF"},
	"Macro":   {"inflation", "gdp", "cpi", "pmi", "récession", "croissance", "emploi", "chômage", "BCE", "FED", "banque centrale"},
	"Energy":  {"pétrole", "gaz", "opec", "opep", "brent", "énergie", "nucléaire"},
	"Tech":    {"ia", "ai", "nvidia", "semi", "puce", "cloud", "logiciel", "cyber"},
	"Geo":     {"ukraine", "russia", "china", "beijing", "taiwan", "otan", "nato", "conflit", "sanctions"},
}
