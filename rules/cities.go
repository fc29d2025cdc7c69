package rules

import "strings"

// CityEntry maps the canonical English city name to its district and the
// aliases (Hebrew spelling, common transliterations) it is recognized by.
type CityEntry struct {
	Canonical string
	Region    string
	Aliases   []string
}

var cityGazetteer = []CityEntry{
	{Canonical: "Tel Aviv", Region: "Tel Aviv District", Aliases: []string{"תל אביב", "tel aviv", "tel-aviv", "tlv", "תל-אביב"}},
	{Canonical: "Jerusalem", Region: "Jerusalem District", Aliases: []string{"ירושלים", "jerusalem"}},
	{Canonical: "Haifa", Region: "Haifa District", Aliases: []string{"חיפה", "haifa"}},
	{Canonical: "Beer Sheva", Region: "Southern District", Aliases: []string{"באר שבע", "beer sheva", "beersheba", "be'er sheva"}},
	{Canonical: "Netanya", Region: "Central District", Aliases: []string{"נתניה", "netanya", "natanya"}},
	{Canonical: "Petah Tikva", Region: "Central District", Aliases: []string{"פתח תקווה", "פתח תקוה", "petah tikva", "petach tikva"}},
	{Canonical: "Ashdod", Region: "Southern District", Aliases: []string{"אשדוד", "ashdod"}},
	{Canonical: "Rishon LeZion", Region: "Central District", Aliases: []string{"ראשון לציון", "רישון לציון", "rishon lezion", "rishon letzion"}},
	{Canonical: "Ashkelon", Region: "Southern District", Aliases: []string{"אשקלון", "ashkelon", "ashqelon"}},
	{Canonical: "Raanana", Region: "Central District", Aliases: []string{"רעננה", "raanana", "ra'anana"}},
	{Canonical: "Ramat Gan", Region: "Tel Aviv District", Aliases: []string{"רמת גן", "ramat gan", "ramat-gan"}},
	{Canonical: "Herzliya", Region: "Tel Aviv District", Aliases: []string{"הרצליה", "herzliya", "herzlia"}},
	{Canonical: "Kfar Saba", Region: "Central District", Aliases: []string{"כפר סבא", "kfar saba", "kfar-saba"}},
	{Canonical: "Holon", Region: "Tel Aviv District", Aliases: []string{"חולון", "holon"}},
	{Canonical: "Bat Yam", Region: "Tel Aviv District", Aliases: []string{"בת ים", "bat yam", "bat-yam"}},
	{Canonical: "Ramla", Region: "Central District", Aliases: []string{"רמלה", "ramla", "ramle"}},
	{Canonical: "Rehovot", Region: "Central District", Aliases: []string{"רחובות", "rehovot"}},
	{Canonical: "Modiin", Region: "Central District", Aliases: []string{"מודיעין", "modiin", "modi'in"}},
	{Canonical: "Beit Shemesh", Region: "Jerusalem District", Aliases: []string{"בית שמש", "beit shemesh", "bet shemesh"}},
	{Canonical: "Eilat", Region: "Southern District", Aliases: []string{"אילת", "eilat"}},
}

// CityGazetteer returns the full gazetteer.
func CityGazetteer() []CityEntry {
	return cityGazetteer
}

// LookupCity scans free location text for a known city alias and returns the
// canonical name and district. A miss returns empty strings; the listing is
// kept, it just drops out of city-scoped aggregates.
func LookupCity(text string) (city, region string) {
	lowered := strings.ToLower(text)
	for _, entry := range cityGazetteer {
		for _, alias := range entry.Aliases {
			if strings.Contains(lowered, alias) {
				return entry.Canonical, entry.Region
			}
		}
	}
	return "", ""
}
