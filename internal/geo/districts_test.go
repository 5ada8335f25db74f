package geo

import "testing"

func TestDistrictNamesCoverTaxonomy(t *testing.T) {
	names := DistrictNames()
	if len(names) != len(FederalDistricts) {
		t.Fatalf("DistrictNames returned %d names, taxonomy has %d districts", len(names), len(FederalDistricts))
	}
	for _, name := range names {
		if !IsDistrict(name) {
			t.Errorf("ordered name %q missing from taxonomy", name)
		}
	}
}

func TestIsRegionOf(t *testing.T) {
	if !IsRegionOf("Центральный федеральный округ", "Москва") {
		t.Errorf("Москва belongs to the central district")
	}
	if IsRegionOf("Уральский федеральный округ", "Москва") {
		t.Errorf("Москва does not belong to the Urals district")
	}
	if IsRegionOf("несуществующий округ", "Москва") {
		t.Errorf("unknown district has no regions")
	}
}

func TestRegionsCopyIsIndependent(t *testing.T) {
	regions := Regions("Южный федеральный округ")
	if len(regions) == 0 {
		t.Fatalf("expected regions for southern district")
	}
	regions[0] = "изменено"
	if FederalDistricts["Южный федеральный округ"][0] == "изменено" {
		t.Errorf("Regions must return a copy, not the backing slice")
	}
	if Regions("нет такого") != nil {
		t.Errorf("unknown district should return nil")
	}
}
