package transform

import (
	"context"
	"strings"

	"crashgraph/internal/crash"
	"crashgraph/internal/logging"
)

// Output table names; sinks use them as file names or topic suffixes.
const (
	TablePersonNodes      = "person_nodes"
	TableCrashNodes       = "crash_nodes"
	TableLocationNodes    = "location_nodes"
	TableDateTimeNodes    = "dateTime_nodes"
	TablePersonCrashRel   = "person_crash_rel"
	TableCrashLocationRel = "crash_location_rel"
	TableCrashDateTimeRel = "crash_dateTime_rel"
)

// Node labels and relationship types.
const (
	LabelPerson   = "Person"
	LabelCrash    = "Crash"
	LabelLocation = "Location"
	LabelDateTime = "DateTime"

	RelInvolvedIn = "INVOLVED_IN"
	RelOccurredAt = "OCCURRED_AT"
	RelHappenedAt = "HAPPENED_AT"
)

// Key columns.
const (
	KeyPerson   = "personId"
	KeyCrash    = "crashId"
	KeyLocation = "locationId"
	KeyDateTime = "dateTimeId"
)

const keySep = "_"

type Stats struct {
	InputRows        int
	DuplicatePersons int
	Rows             map[string]int
	Dropped          map[string]int
}

type Result struct {
	Persons   *Table
	Crashes   *Table
	Locations *Table
	DateTimes *Table

	PersonCrash   *Table
	CrashLocation *Table
	CrashDateTime *Table

	Stats Stats
}

// Tables returns every table in write order: nodes, then relationships.
func (r *Result) Tables() []*Table {
	return []*Table{
		r.Persons, r.Crashes, r.Locations, r.DateTimes,
		r.PersonCrash, r.CrashLocation, r.CrashDateTime,
	}
}

type Transformer struct {
	opts Options
}

func New(opts Options) *Transformer {
	opts.applyDefaults()
	return &Transformer{opts: opts}
}

// LocationID joins State, remoteness, SA4 and LGA (and, in MODE_B, the road
// type) with "_".
func LocationID(r crash.Record, mode Mode) string {
	parts := []string{r.State, r.NationalRemotenessAreas, r.SA4Name, r.LGAName}
	if mode.roadTypeOnLocation() {
		parts = append(parts, r.NationalRoadType)
	}
	return strings.Join(parts, keySep)
}

// DateTimeID joins Month, Year and Time with "_".
func DateTimeID(r crash.Record) string {
	return strings.Join([]string{r.Month, r.Year, r.Time}, keySep)
}

// Transform builds the node and relationship tables for records.
func (t *Transformer) Transform(ctx context.Context, records []crash.Record) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := t.opts.Logger
	if log == nil {
		log = logging.L()
	}
	log.Info("transforming records", "rows", len(records), "mode", t.opts.Mode, "dedup", t.opts.Dedup)

	res := &Result{Stats: Stats{
		InputRows: len(records),
		Rows:      map[string]int{},
		Dropped:   map[string]int{},
	}}

	dups := duplicatePersonIDs(records)
	res.Stats.DuplicatePersons = len(dups)
	if len(dups) > 0 {
		if t.opts.DuplicatePerson == DuplicatePersonFail {
			return nil, &crash.DuplicatePersonError{IDs: dups}
		}
		log.Warn("duplicate person ids; every row is kept as its own person", "count", len(dups), "first", dups[0])
	}

	locIDs := make([]string, len(records))
	dtIDs := make([]string, len(records))
	for i, r := range records {
		locIDs[i] = LocationID(r, t.opts.Mode)
		dtIDs[i] = DateTimeID(r)
	}

	res.Persons = t.personTable(records)
	res.Crashes = t.crashTable(records)
	res.Locations = t.locationTable(records, locIDs)
	res.DateTimes = t.dateTimeTable(records, dtIDs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var err error
	for _, n := range []struct {
		tbl *Table
		key string
	}{
		{res.Crashes, KeyCrash},
		{res.Locations, KeyLocation},
		{res.DateTimes, KeyDateTime},
	} {
		if err = t.dedupeNodes(n.tbl, n.key, res); err != nil {
			return nil, err
		}
	}

	if res.PersonCrash, err = res.Persons.Project(TablePersonCrashRel, KeyPerson, KeyCrash); err != nil {
		return nil, err
	}
	relate(res.PersonCrash, RelInvolvedIn, Endpoint{LabelPerson, KeyPerson}, Endpoint{LabelCrash, KeyCrash})

	res.CrashLocation = pairTable(TableCrashLocationRel, KeyLocation, records, locIDs)
	relate(res.CrashLocation, RelOccurredAt, Endpoint{LabelCrash, KeyCrash}, Endpoint{LabelLocation, KeyLocation})

	res.CrashDateTime = pairTable(TableCrashDateTimeRel, KeyDateTime, records, dtIDs)
	relate(res.CrashDateTime, RelHappenedAt, Endpoint{LabelCrash, KeyCrash}, Endpoint{LabelDateTime, KeyDateTime})

	for _, rel := range []*Table{res.PersonCrash, res.CrashLocation, res.CrashDateTime} {
		res.Stats.Dropped[rel.Name] = rel.DedupeRows()
	}

	for _, tbl := range res.Tables() {
		res.Stats.Rows[tbl.Name] = tbl.Len()
		log.Info("created table", "table", tbl.Name, "kind", tbl.Kind, "rows", tbl.Len())
	}
	return res, nil
}

func (t *Transformer) personTable(records []crash.Record) *Table {
	tbl := NewTable(TablePersonNodes, KeyPerson, "roadUser", "gender", "age", "ageGroup", KeyCrash)
	node(tbl, LabelPerson, KeyPerson, KeyCrash)
	for _, r := range records {
		tbl.Append(r.ID, r.RoadUser, r.Gender, r.Age, r.AgeGroup, r.CrashID)
	}
	return tbl
}

func (t *Transformer) crashTable(records []crash.Record) *Table {
	cols := []string{KeyCrash, "crashType", "numberFatalities", "busInvolvement",
		"heavyRigidTruckInvolvement", "articulatedTruckInvolvement", "speedLimit"}
	roadType := !t.opts.Mode.roadTypeOnLocation()
	if roadType {
		cols = append(cols, "nationalRoadType")
	}
	tbl := NewTable(TableCrashNodes, cols...)
	node(tbl, LabelCrash, KeyCrash)
	for _, r := range records {
		row := []string{r.CrashID, r.CrashType, r.NumberFatalities, r.BusInvolvement,
			r.HeavyRigidTruckInvolvement, r.ArticulatedTruckInvolvement, r.SpeedLimit}
		if roadType {
			row = append(row, r.NationalRoadType)
		}
		tbl.Append(row...)
	}
	return tbl
}

func (t *Transformer) locationTable(records []crash.Record, ids []string) *Table {
	cols := []string{KeyLocation, "state", "nationalRemoteAreas", "sa4Name", "lgaName"}
	roadType := t.opts.Mode.roadTypeOnLocation()
	if roadType {
		cols = append(cols, "nationalRoadType")
	}
	cols = append(cols, KeyCrash)
	tbl := NewTable(TableLocationNodes, cols...)
	node(tbl, LabelLocation, KeyLocation, KeyCrash)
	for i, r := range records {
		row := []string{ids[i], r.State, r.NationalRemotenessAreas, r.SA4Name, r.LGAName}
		if roadType {
			row = append(row, r.NationalRoadType)
		}
		tbl.Append(append(row, r.CrashID)...)
	}
	return tbl
}

func (t *Transformer) dateTimeTable(records []crash.Record, ids []string) *Table {
	tbl := NewTable(TableDateTimeNodes, KeyDateTime, "month", "year", "dayOfWeek", "time",
		"timeOfDay", "weekdayOrWeekend", "christmasPeriod", "easterPeriod", KeyCrash)
	node(tbl, LabelDateTime, KeyDateTime, KeyCrash)
	for i, r := range records {
		tbl.Append(ids[i], r.Month, r.Year, r.Dayweek, r.Time,
			r.TimeOfDay, r.DayOfWeek, r.ChristmasPeriod, r.EasterPeriod, r.CrashID)
	}
	return tbl
}

// dedupeNodes drops repeated keys, first occurrence wins. Under
// DedupTwoPass location and date-time rows are first reduced to one per
// (crash, key) pair, then to one per key; both passes keep the first row, so
// the result matches DedupSingle.
func (t *Transformer) dedupeNodes(tbl *Table, key string, res *Result) error {
	var dropped int
	if t.opts.Dedup == DedupTwoPass && key != KeyCrash {
		n, err := tbl.DedupeByColumns(KeyCrash, key)
		if err != nil {
			return err
		}
		dropped += n
	}
	n, err := tbl.DedupeBy(key)
	if err != nil {
		return err
	}
	res.Stats.Dropped[tbl.Name] = dropped + n
	return nil
}

func pairTable(name, key string, records []crash.Record, ids []string) *Table {
	tbl := NewTable(name, KeyCrash, key)
	for i, r := range records {
		tbl.Append(r.CrashID, ids[i])
	}
	return tbl
}

func node(tbl *Table, label, key string, transient ...string) {
	tbl.Kind, tbl.Label, tbl.Key, tbl.Transient = KindNode, label, key, transient
}

func relate(tbl *Table, relType string, from, to Endpoint) {
	tbl.Kind, tbl.Label, tbl.From, tbl.To = KindRelationship, relType, from, to
}

func duplicatePersonIDs(records []crash.Record) []string {
	seen := make(map[string]int, len(records))
	var dups []string
	for _, r := range records {
		seen[r.ID]++
		if seen[r.ID] == 2 {
			dups = append(dups, r.ID)
		}
	}
	return dups
}
