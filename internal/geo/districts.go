// Package geo holds the fixed two-level geographic taxonomy used during
// registration: federal district -> list of regions.
package geo

// FederalDistricts maps each federal district to its regions. The set is
// fixed; registration rejects any value outside it.
var FederalDistricts = map[string][]string{
	"Центральный федеральный округ": {
		"Белгородская область", "Брянская область", "Владимирская область", "Воронежская область",
		"Ивановская область", "Калужская область", "Костромская область", "Курская область",
		"Липецкая область", "Московская область", "Орловская область", "Рязанская область",
		"Смоленская область", "Тамбовская область", "Тверская область", "Тульская область",
		"Ярославская область", "Москва",
	},
	"Северо-Западный федеральный округ": {
		"Республика Карелия", "Республика Коми", "Архангельская область", "Вологодская область",
		"Ленинградская область", "Мурманская область", "Новгородская область", "Псковская область",
		"Калининградская область", "Ненецкий автономный округ", "Санкт-Петербург",
	},
	"Южный федеральный округ": {
		"Республика Адыгея", "Республика Калмыкия", "Республика Крым", "Краснодарский край",
		"Астраханская область", "Волгоградская область", "Ростовская область", "Севастополь",
	},
	"Северо-Кавказский федеральный округ": {
		"Республика Дагестан", "Республика Ингушетия", "Кабардино-Балкарская Республика",
		"Карачаево-Черкесская Республика", "Республика Северная Осетия — Алания",
		"Чеченская Республика", "Ставропольский край",
	},
	"Приволжский федеральный округ": {
		"Республика Башкортостан", "Республика Марий Эл", "Республика Мордовия", "Республика Татарстан",
		"Удмуртская Республика", "Чувашская Республика", "Кировская область", "Нижегородская область",
		"Оренбургская область", "Пензенская область", "Пермский край", "Самарская область",
		"Саратовская область", "Ульяновская область",
	},
	"Уральский федеральный округ": {
		"Курганская область", "Свердловская область", "Тюменская область", "Ханты-Мансийский автономный округ — Югра",
		"Челябинская область", "Ямало-Ненецкий автономный округ",
	},
	"Сибирский федеральный округ": {
		"Республика Алтай", "Республика Тыва", "Республика Хакасия", "Алтайский край",
		"Красноярский край", "Иркутская область", "Кемеровская область", "Новосибирская область",
		"Омская область", "Томская область", "Забайкальский край",
	},
	"Дальневосточный федеральный округ": {
		"Республика Саха (Якутия)", "Приморский край", "Хабаровский край", "Амурская область",
		"Камчатский край", "Магаданская область", "Сахалинская область", "Еврейская автономная область",
		"Чукотский автономный округ",
	},
}

// districtOrder keeps keyboard rendering deterministic; map iteration
// order is not.
var districtOrder = []string{
	"Центральный федеральный округ",
	"Северо-Западный федеральный округ",
	"Южный федеральный округ",
	"Северо-Кавказский федеральный округ",
	"Приволжский федеральный округ",
	"Уральский федеральный округ",
	"Сибирский федеральный округ",
	"Дальневосточный федеральный округ",
}

// DistrictNames returns the federal district names in display order.
func DistrictNames() []string {
	out := make([]string, len(districtOrder))
	copy(out, districtOrder)
	return out
}

// IsDistrict reports whether name is a known federal district.
func IsDistrict(name string) bool {
	_, ok := FederalDistricts[name]
	return ok
}

// Regions returns the region list of a district, or nil for an unknown
// district.
func Regions(district string) []string {
	regions, ok := FederalDistricts[district]
	if !ok {
		return nil
	}
	out := make([]string, len(regions))
	copy(out, regions)
	return out
}

// IsRegionOf reports whether region belongs to the given district.
func IsRegionOf(district, region string) bool {
	for _, r := range FederalDistricts[district] {
		if r == region {
			return true
		}
	}
	return false
}
