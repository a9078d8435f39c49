package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Trip mirrors the column layout of the public FHVHV trip files, so the
// engine bootstrap reads seeded files and real exports the same way.
type Trip struct {
	HvfhsLicenseNum   string    `parquet:"hvfhs_license_num"`
	DispatchingBase   string    `parquet:"dispatching_base_num"`
	PickupDatetime    time.Time `parquet:"pickup_datetime,timestamp"`
	DropoffDatetime   time.Time `parquet:"dropoff_datetime,timestamp"`
	PULocationID      int32     `parquet:"PULocationID"`
	DOLocationID      int32     `parquet:"DOLocationID"`
	TripMiles         float64   `parquet:"trip_miles"`
	TripTime          int64     `parquet:"trip_time"`
	BasePassengerFare float64   `parquet:"base_passenger_fare"`
	Tips              float64   `parquet:"tips"`
	DriverPay         float64   `parquet:"driver_pay"`
}

// License shares for synthetic trips, roughly matching the real market.
var licenseWeights = []struct {
	license string
	weight  int
}{
	{"HV0003", 72}, // Uber
	{"HV0005", 26}, // Lyft
	{"HV0004", 2},  // Via
}

var dispatchingBases = []string{"B03404", "B03406", "B02510", "B02764", "B02800"}

type Generator struct {
	rnd       *rand.Rand
	zoneCount int
}

func NewGenerator(seed int64, zoneCount int) *Generator {
	if zoneCount <= 0 {
		zoneCount = 263
	}
	return &Generator{
		rnd:       rand.New(rand.NewSource(seed)),
		zoneCount: zoneCount,
	}
}

// NextTrip produces one trip with a pickup inside the given month.
// Hours are biased toward the evening peak so hourly charts have shape.
func (g *Generator) NextTrip(monthStart time.Time) Trip {
	daysInMonth := monthStart.AddDate(0, 1, 0).Sub(monthStart).Hours() / 24
	day := g.rnd.Intn(int(daysInMonth))
	hour := g.pickHour()
	minute := g.rnd.Intn(60)
	second := g.rnd.Intn(60)
	pickup := monthStart.AddDate(0, 0, day).
		Add(time.Duration(hour)*time.Hour +
			time.Duration(minute)*time.Minute +
			time.Duration(second)*time.Second)

	miles := round2(0.5 + g.rnd.ExpFloat64()*3)
	if miles > 60 {
		miles = 60
	}
	// Average around 15mph plus idle time.
	seconds := int64(miles/15*3600) + int64(g.rnd.Intn(600)) + 120
	fare := round2(3.5 + miles*2.2 + float64(seconds)/60*0.4)

	return Trip{
		HvfhsLicenseNum:   g.pickLicense(),
		DispatchingBase:   dispatchingBases[g.rnd.Intn(len(dispatchingBases))],
		PickupDatetime:    pickup,
		DropoffDatetime:   pickup.Add(time.Duration(seconds) * time.Second),
		PULocationID:      int32(g.rnd.Intn(g.zoneCount) + 1),
		DOLocationID:      int32(g.rnd.Intn(g.zoneCount) + 1),
		TripMiles:         miles,
		TripTime:          seconds,
		BasePassengerFare: fare,
		Tips:              g.pickTip(fare),
		DriverPay:         round2(fare * 0.72),
	}
}

func (g *Generator) pickHour() int {
	p := g.rnd.Intn(100)
	switch {
	case p < 10:
		return g.rnd.Intn(6) // 00-05
	case p < 30:
		return 6 + g.rnd.Intn(6) // 06-11
	case p < 55:
		return 12 + g.rnd.Intn(5) // 12-16
	default:
		return 17 + g.rnd.Intn(7) // 17-23
	}
}

func (g *Generator) pickLicense() string {
	p := g.rnd.Intn(100)
	total := 0
	for _, entry := range licenseWeights {
		total += entry.weight
		if p < total {
			return entry.license
		}
	}
	return licenseWeights[len(licenseWeights)-1].license
}

func (g *Generator) pickTip(fare float64) float64 {
	if g.rnd.Intn(100) < 70 {
		return 0
	}
	return round2(fare * (0.05 + g.rnd.Float64()*0.2))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// ZoneName labels synthetic zones for the lookup CSV.
func ZoneName(id int) string {
	return fmt.Sprintf("Zone %03d", id)
}
