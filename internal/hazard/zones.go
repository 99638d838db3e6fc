package hazard

// RiskProfile is the regional risk assessment for a coordinate, with
// user-facing Turkish copy carried through from the curated zone table.
type RiskProfile struct {
	Level       string `json:"level"`
	Score       int    `json:"score"`
	Description string `json:"description"`
	Advice      string `json:"advice"`
	ZoneName    string `json:"zoneName,omitempty"`
}

type zoneBounds struct {
	latMin, latMax float64
	lonMin, lonMax float64
}

type riskZone struct {
	id      string
	name    string
	bounds  zoneBounds
	profile RiskProfile
}

// riskZones are hand-curated regional profiles. Matching is a simple
// first-hit bounding-box test in declaration order.
var riskZones = []riskZone{
	{
		id:     "marmara",
		name:   "Marmara Fay Hattı",
		bounds: zoneBounds{latMin: 40.7, latMax: 41.3, lonMin: 28.6, lonMax: 29.4},
		profile: RiskProfile{
			Level:       "Yüksek Risk",
			Score:       82,
			Description: "Kuzey Anadolu fayının Marmara koluna en yakın banttasın. Binaların güçlendirme durumu kritik.",
			Advice:      "Binaların performans raporlarını kontrol et, aile buluşma planı oluştur.",
		},
	},
	{
		id:     "ege",
		name:   "Ege Graben Bölgesi",
		bounds: zoneBounds{latMin: 37.5, latMax: 40.9, lonMin: 26, lonMax: 28.4},
		profile: RiskProfile{
			Level:       "Orta-Yüksek Risk",
			Score:       68,
			Description: "Sık orta şiddette depremler yaşanan bir graben hattındasın.",
			Advice:      "Sabitlenmemiş eşyaları duvara sabitle, acil çanta hazır bulunsun.",
		},
	},
	{
		id:     "akdeniz",
		name:   "Doğu Akdeniz Çöküntüsü",
		bounds: zoneBounds{latMin: 35.8, latMax: 37.4, lonMin: 29.6, lonMax: 36.4},
		profile: RiskProfile{
			Level:       "Orta Risk",
			Score:       55,
			Description: "Çoklu fay hatlarının kesiştiği bölge. Sarsıntılar yaygın ama daha düşük magnitüdde.",
			Advice:      "Bölgedeki tahliye yollarını öğren, mahalle afet gönüllülerine katılmayı düşün.",
		},
	},
}

// defaultRiskProfile is returned when no zone matches the coordinates.
var defaultRiskProfile = RiskProfile{
	Level:       "Belirleniyor",
	Score:       40,
	Description: "Koordinatlar için yerel risk profili bulunamadı. AFAD duyurularını takip et.",
	Advice:      "Yaşadığın binanın zemin etüdünü incele ve acil durum planını güncelle.",
}

// RiskForCoords returns the curated regional risk profile containing the
// coordinate, or the default profile when no zone matches.
func RiskForCoords(lat, lon float64) RiskProfile {
	for _, zone := range riskZones {
		b := zone.bounds
		if lat >= b.latMin && lat <= b.latMax && lon >= b.lonMin && lon <= b.lonMax {
			profile := zone.profile
			profile.ZoneName = zone.name
			return profile
		}
	}
	return defaultRiskProfile
}
