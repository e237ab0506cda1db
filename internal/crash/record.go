// Package crash holds the input schema of the road-crash dataset and the
// error taxonomy shared by sources, the transformer and sinks.
package crash

// Source column names, exactly as they appear in the input header.
const (
	ColID               = "ID"
	ColCrashID          = "Crash ID"
	ColState            = "State"
	ColMonth            = "Month"
	ColYear             = "Year"
	ColDayweek          = "Dayweek"
	ColTime             = "Time"
	ColCrashType        = "Crash Type"
	ColNumberFatalities = "Number Fatalities"
	ColBusInvolvement   = "Bus Involvement"
	ColHeavyRigidTruck  = "Heavy Rigid Truck Involvement"
	ColArticulatedTruck = "Articulated Truck Involvement"
	ColSpeedLimit       = "Speed Limit"
	ColRoadUser         = "Road User"
	ColGender           = "Gender"
	ColAge              = "Age"
	ColRemotenessAreas  = "National Remoteness Areas"
	ColSA4Name          = "SA4 Name 2021"
	ColLGAName          = "National LGA Name 2024"
	ColNationalRoadType = "National Road Type"
	ColChristmasPeriod  = "Christmas Period"
	ColEasterPeriod     = "Easter Period"
	ColAgeGroup         = "Age Group"
	ColDayOfWeek        = "Day of week"
	ColTimeOfDay        = "Time of day"
)

// RequiredColumns lists every column a source file must carry.
var RequiredColumns = []string{
	ColID, ColCrashID, ColState, ColMonth, ColYear, ColDayweek, ColTime,
	ColCrashType, ColNumberFatalities, ColBusInvolvement, ColHeavyRigidTruck,
	ColArticulatedTruck, ColSpeedLimit, ColRoadUser, ColGender, ColAge,
	ColRemotenessAreas, ColSA4Name, ColLGAName, ColNationalRoadType,
	ColChristmasPeriod, ColEasterPeriod, ColAgeGroup, ColDayOfWeek, ColTimeOfDay,
}

// Record is one person-in-crash observation. Values are kept verbatim as
// read; a missing value is the empty string.
type Record struct {
	ID      string
	CrashID string

	// person
	RoadUser string
	Gender   string
	Age      string
	AgeGroup string

	// crash
	CrashType                   string
	NumberFatalities            string
	BusInvolvement              string
	HeavyRigidTruckInvolvement  string
	ArticulatedTruckInvolvement string
	SpeedLimit                  string
	NationalRoadType            string

	// location
	State                   string
	NationalRemotenessAreas string
	SA4Name                 string
	LGAName                 string

	// time
	Month           string
	Year            string
	Dayweek         string
	Time            string
	TimeOfDay       string
	DayOfWeek       string
	ChristmasPeriod string
	EasterPeriod    string
}

// slots returns the fields of r in RequiredColumns order.
func (r *Record) slots() []*string {
	return []*string{
		&r.ID, &r.CrashID, &r.State, &r.Month, &r.Year, &r.Dayweek, &r.Time,
		&r.CrashType, &r.NumberFatalities, &r.BusInvolvement, &r.HeavyRigidTruckInvolvement,
		&r.ArticulatedTruckInvolvement, &r.SpeedLimit, &r.RoadUser, &r.Gender, &r.Age,
		&r.NationalRemotenessAreas, &r.SA4Name, &r.LGAName, &r.NationalRoadType,
		&r.ChristmasPeriod, &r.EasterPeriod, &r.AgeGroup, &r.DayOfWeek, &r.TimeOfDay,
	}
}

// Binder resolves header positions once per file.
type Binder struct {
	pos []int // header position of RequiredColumns[i]
}

// NewBinder checks header against RequiredColumns and returns a Binder, or
// an *InputSchemaError naming every missing column.
func NewBinder(header []string) (*Binder, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	pos := make([]int, len(RequiredColumns))
	var missing []string
	for j, c := range RequiredColumns {
		i, ok := idx[c]
		if !ok {
			missing = append(missing, c)
		}
		pos[j] = i
	}
	if len(missing) > 0 {
		return nil, &InputSchemaError{Missing: missing}
	}
	return &Binder{pos: pos}, nil
}

// Decode fills a Record from one data row laid out like the bound header.
func (b *Binder) Decode(row []string) Record {
	var r Record
	for j, p := range r.slots() {
		if i := b.pos[j]; i < len(row) {
			*p = row[i]
		}
	}
	return r
}
