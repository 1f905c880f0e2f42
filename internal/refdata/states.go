// Package refdata serves static reference lists and the sample data shown
// when the upstream service is unavailable. Nothing here can fail at runtime.
package refdata

import (
	"slices"
	"strings"
)

var citiesByState = map[string][]string{
	"Abia":        {"Aba", "Umuahia", "Ohafia"},
	"Adamawa":     {"Yola", "Mubi", "Numan"},
	"Akwa Ibom":   {"Uyo", "Eket", "Ikot Ekpene"},
	"Anambra":     {"Awka", "Onitsha", "Nnewi"},
	"Bauchi":      {"Bauchi", "Azare", "Misau"},
	"Bayelsa":     {"Yenagoa", "Brass", "Ogbia"},
	"Benue":       {"Makurdi", "Gboko", "Otukpo"},
	"Borno":       {"Maiduguri", "Biu", "Bama"},
	"Cross River": {"Calabar", "Ikom", "Obudu"},
	"Delta":       {"Asaba", "Warri", "Sapele"},
	"Ebonyi":      {"Abakaliki", "Afikpo", "Onueke"},
	"Edo":         {"Benin City", "Auchi", "Ekpoma"},
	"Ekiti":       {"Ado Ekiti", "Ikere", "Ijero"},
	"Enugu":       {"Enugu", "Nsukka", "Agbani"},
	"FCT":         {"Abuja", "Gwagwalada", "Kuje"},
	"Gombe":       {"Gombe", "Kaltungo", "Billiri"},
	"Imo":         {"Owerri", "Orlu", "Okigwe"},
	"Jigawa":      {"Dutse", "Hadejia", "Gumel"},
	"Kaduna":      {"Kaduna", "Zaria", "Kafanchan"},
	"Kano":        {"Kano", "Wudil", "Bichi"},
	"Katsina":     {"Katsina", "Daura", "Funtua"},
	"Kebbi":       {"Birnin Kebbi", "Argungu", "Yauri"},
	"Kogi":        {"Lokoja", "Okene", "Idah"},
	"Kwara":       {"Ilorin", "Offa", "Jebba"},
	"Lagos":       {"Ikeja", "Lekki", "Victoria Island", "Ikoyi", "Yaba", "Epe"},
	"Nasarawa":    {"Lafia", "Keffi", "Akwanga"},
	"Niger":       {"Minna", "Bida", "Suleja"},
	"Ogun":        {"Abeokuta", "Ijebu Ode", "Sagamu"},
	"Ondo":        {"Akure", "Ondo", "Owo"},
	"Osun":        {"Osogbo", "Ile-Ife", "Ilesa"},
	"Oyo":         {"Ibadan", "Ogbomosho", "Oyo"},
	"Plateau":     {"Jos", "Pankshin", "Shendam"},
	"Rivers":      {"Port Harcourt", "Bonny", "Omoku"},
	"Sokoto":      {"Sokoto", "Tambuwal", "Wurno"},
	"Taraba":      {"Jalingo", "Wukari", "Bali"},
	"Yobe":        {"Damaturu", "Potiskum", "Gashua"},
	"Zamfara":     {"Gusau", "Kaura Namoda", "Talata Mafara"},
}

// States returns the state names in alphabetical order.
func States() []string {
	states := make([]string, 0, len(citiesByState))
	for state := range citiesByState {
		states = append(states, state)
	}
	slices.Sort(states)
	return states
}

// Cities looks the state up case-insensitively.
func Cities(state string) ([]string, bool) {
	for name, cities := range citiesByState {
		if strings.EqualFold(name, strings.TrimSpace(state)) {
			return slices.Clone(cities), true
		}
	}
	return nil, false
}
