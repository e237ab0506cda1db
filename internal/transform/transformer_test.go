package transform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashgraph/internal/crash"
)

func record(id, crashID string) crash.Record {
	return crash.Record{
		ID:                          id,
		CrashID:                     crashID,
		RoadUser:                    "Driver",
		Gender:                      "Male",
		Age:                         "34",
		AgeGroup:                    "26_to_39",
		CrashType:                   "Single",
		NumberFatalities:            "1",
		BusInvolvement:              "No",
		HeavyRigidTruckInvolvement:  "No",
		ArticulatedTruckInvolvement: "No",
		SpeedLimit:                  "100",
		NationalRoadType:            "Arterial Road",
		State:                       "NSW",
		NationalRemotenessAreas:     "Inner Regional Australia",
		SA4Name:                     "Riverina",
		LGAName:                     "Wagga Wagga",
		Month:                       "12",
		Year:                        "2023",
		Dayweek:                     "Friday",
		Time:                        "17:00",
		TimeOfDay:                   "Day",
		DayOfWeek:                   "Weekday",
		ChristmasPeriod:             "Yes",
		EasterPeriod:                "No",
	}
}

// dataset builds n rows with repeating crashes, locations and times; every
// row of a crash shares its crash, location and time attributes.
func dataset(n int) []crash.Record {
	states := []string{"NSW", "VIC", "QLD"}
	roads := []string{"Arterial Road", "Local Road", "National or State Highway"}
	out := make([]crash.Record, 0, n)
	for i := 0; i < n; i++ {
		c := i % 11
		r := record(strconv.Itoa(1000+i), strconv.Itoa(20230000+c))
		r.State = states[c%len(states)]
		r.LGAName = fmt.Sprintf("LGA %d", c%4)
		r.NationalRoadType = roads[c%len(roads)]
		r.Month = strconv.Itoa(1 + c%5)
		r.Time = fmt.Sprintf("%02d:00", c%6)
		r.Age = strconv.Itoa(18 + i)
		out = append(out, r)
	}
	return out
}

func run(t *testing.T, opts Options, recs []crash.Record) *Result {
	t.Helper()
	res, err := New(opts).Transform(context.Background(), recs)
	require.NoError(t, err)
	return res
}

func TestTransform_PersonIsOneRowPerInputRow(t *testing.T) {
	recs := dataset(40)
	res := run(t, Options{}, recs)

	ids, err := res.Persons.Column(KeyPerson)
	require.NoError(t, err)
	require.Len(t, ids, len(recs))
	for i, r := range recs {
		assert.Equal(t, r.ID, ids[i])
	}
	assert.Equal(t, []string{"personId", "roadUser", "gender", "age", "ageGroup", "crashId"}, res.Persons.Columns)
}

func TestTransform_CrashScenario(t *testing.T) {
	a := record("1", "100")
	b := record("2", "100")
	c := record("3", "200")
	c.LGAName = "Griffith"

	res := run(t, Options{}, []crash.Record{a, b, c})

	require.Equal(t, 2, res.Crashes.Len())
	crashIDs, _ := res.Crashes.Column(KeyCrash)
	assert.Equal(t, []string{"100", "200"}, crashIDs)
	assert.Equal(t, 1, res.Stats.Dropped[TableCrashNodes])

	// (100, loc1) twice and (200, loc2) once
	assert.Equal(t, 2, res.CrashLocation.Len())
	assert.Equal(t, [][]string{
		{"100", "NSW_Inner Regional Australia_Riverina_Wagga Wagga"},
		{"200", "NSW_Inner Regional Australia_Riverina_Griffith"},
	}, res.CrashLocation.Rows)
	assert.Equal(t, 3, res.PersonCrash.Len())
}

func TestTransform_LocationByMode(t *testing.T) {
	a := record("1", "100")
	b := record("2", "200")
	b.NationalRoadType = "Local Road"

	t.Run("MODE_A", func(t *testing.T) {
		res := run(t, Options{Mode: ModeA}, []crash.Record{a, b})
		require.Equal(t, 1, res.Locations.Len())
		assert.Equal(t, "NSW_Inner Regional Australia_Riverina_Wagga Wagga", res.Locations.Rows[0][0])
		assert.Equal(t, -1, res.Locations.Index("nationalRoadType"))
		assert.Equal(t, len(res.Crashes.Columns)-1, res.Crashes.Index("nationalRoadType"))
		assert.Equal(t, "100", res.Locations.Rows[0][res.Locations.Index(KeyCrash)])
	})

	t.Run("MODE_B", func(t *testing.T) {
		res := run(t, Options{Mode: ModeB}, []crash.Record{a, b})
		require.Equal(t, 2, res.Locations.Len())
		assert.Equal(t, []string{"locationId", "state", "nationalRemoteAreas", "sa4Name", "lgaName", "nationalRoadType", "crashId"}, res.Locations.Columns)
		assert.Equal(t, "NSW_Inner Regional Australia_Riverina_Wagga Wagga_Arterial Road", res.Locations.Rows[0][0])
		assert.Equal(t, "NSW_Inner Regional Australia_Riverina_Wagga Wagga_Local Road", res.Locations.Rows[1][0])
		assert.Equal(t, -1, res.Crashes.Index("nationalRoadType"))
	})

	t.Run("MODE_B same road type collapses", func(t *testing.T) {
		res := run(t, Options{Mode: ModeB}, []crash.Record{a, record("2", "200")})
		assert.Equal(t, 1, res.Locations.Len())
	})
}

func TestTransform_EmptyChristmasPeriodIsKept(t *testing.T) {
	r := record("1", "100")
	r.ChristmasPeriod = ""
	res := run(t, Options{}, []crash.Record{r})

	require.Equal(t, 1, res.DateTimes.Len())
	row := res.DateTimes.Record(0)
	assert.Equal(t, "", row["christmasPeriod"])
	assert.Equal(t, "12_2023_17:00", row[KeyDateTime])
	assert.Equal(t, "Friday", row["dayOfWeek"])
	assert.Equal(t, "Weekday", row["weekdayOrWeekend"])
	assert.Equal(t, "Day", row["timeOfDay"])
}

func TestTransform_EmptyKeyComponentsStayAsSegments(t *testing.T) {
	r := record("1", "100")
	r.NationalRemotenessAreas = ""
	res := run(t, Options{}, []crash.Record{r})
	assert.Equal(t, "NSW__Riverina_Wagga Wagga", res.Locations.Rows[0][0])
}

func TestTransform_FirstOccurrenceWins(t *testing.T) {
	a := record("1", "100")
	b := record("2", "100")
	b.SpeedLimit = "60"
	c := record("3", "300")
	c.Time = "18:00"
	d := record("4", "400")
	d.Time = "17:00"
	d.TimeOfDay = "Night"

	res := run(t, Options{}, []crash.Record{a, b, c, d})

	assert.Equal(t, "100", res.Crashes.Record(0)["speedLimit"])
	require.Equal(t, 2, res.DateTimes.Len())
	assert.Equal(t, "Day", res.DateTimes.Record(0)["timeOfDay"])
	assert.Equal(t, "1", res.Persons.Record(0)[KeyPerson])
	assert.Equal(t, "12_2023_18:00", res.DateTimes.Record(1)[KeyDateTime])
}

func TestTransform_OneRowPerDistinctKey(t *testing.T) {
	recs := dataset(66)
	for _, mode := range []Mode{ModeA, ModeB} {
		res := run(t, Options{Mode: mode}, recs)

		want := map[string]map[string]struct{}{KeyCrash: {}, KeyLocation: {}, KeyDateTime: {}}
		for _, r := range recs {
			want[KeyCrash][r.CrashID] = struct{}{}
			want[KeyLocation][LocationID(r, mode)] = struct{}{}
			want[KeyDateTime][DateTimeID(r)] = struct{}{}
		}
		for key, tbl := range map[string]*Table{KeyCrash: res.Crashes, KeyLocation: res.Locations, KeyDateTime: res.DateTimes} {
			ids, err := tbl.Column(key)
			require.NoError(t, err)
			assert.Len(t, ids, len(want[key]), "%s %s", mode, tbl.Name)
			assert.LessOrEqual(t, tbl.Len(), len(recs))
			seen := map[string]bool{}
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate %s %q", key, id)
				seen[id] = true
				assert.Contains(t, want[key], id)
			}
		}
	}
}

func TestTransform_RelationshipsAreCompleteAndUnique(t *testing.T) {
	res := run(t, Options{Mode: ModeB}, dataset(50))

	nodeKeys := map[string]map[string]bool{}
	for _, tbl := range []*Table{res.Persons, res.Crashes, res.Locations, res.DateTimes} {
		ids, err := tbl.Column(tbl.Key)
		require.NoError(t, err)
		set := map[string]bool{}
		for _, id := range ids {
			set[id] = true
		}
		nodeKeys[tbl.Label] = set
	}

	for _, rel := range []*Table{res.PersonCrash, res.CrashLocation, res.CrashDateTime} {
		require.Equal(t, KindRelationship, rel.Kind)
		require.Len(t, rel.Columns, 2)
		pairs := map[string]bool{}
		for i := range rel.Rows {
			row := rel.Record(i)
			assert.True(t, nodeKeys[rel.From.Label][row[rel.From.Key]], "%s: dangling %s", rel.Name, row[rel.From.Key])
			assert.True(t, nodeKeys[rel.To.Label][row[rel.To.Key]], "%s: dangling %s", rel.Name, row[rel.To.Key])
			k := rowKey(rel.Rows[i])
			assert.False(t, pairs[k], "%s: duplicate pair %v", rel.Name, rel.Rows[i])
			pairs[k] = true
		}
	}
	assert.Equal(t, 11, res.CrashLocation.Len())
	assert.Equal(t, 50, res.PersonCrash.Len())
}

func TestTransform_TwoPassMatchesSinglePass(t *testing.T) {
	recs := dataset(77)
	// a location and time shared by two different crashes
	extra := record("9001", "555")
	extra2 := record("9002", "556")
	recs = append(recs, extra, extra2)

	// crash ids containing the key separator: "A"+"B_C_D_E_F" and
	// "A_B"+"C_D_E_F" spell the same string but are different pairs
	underA := record("9003", "A")
	underA.State, underA.NationalRemotenessAreas, underA.SA4Name, underA.LGAName = "B", "C", "D", "E_F"
	underAB := record("9004", "A_B")
	underAB.State, underAB.NationalRemotenessAreas, underAB.SA4Name, underAB.LGAName = "C", "D", "E", "F"
	underA.Time, underAB.Time = "x_y", "y"
	underA.Month, underAB.Month = "1", "1_x"
	recs = append(recs, underA, underAB)

	for _, mode := range []Mode{ModeA, ModeB} {
		single := run(t, Options{Mode: mode, Dedup: DedupSingle}, recs)
		twoPass := run(t, Options{Mode: mode, Dedup: DedupTwoPass}, recs)

		st, tt := single.Tables(), twoPass.Tables()
		require.Len(t, tt, len(st))
		for i := range st {
			assert.Equal(t, st[i].Name, tt[i].Name)
			assert.Equal(t, st[i].Columns, tt[i].Columns, "%s %s", mode, st[i].Name)
			assert.Equal(t, st[i].Rows, tt[i].Rows, "%s %s", mode, st[i].Name)
		}
		assert.Equal(t, single.Stats.Dropped, twoPass.Stats.Dropped, mode)
	}
}

func TestTransform_TwoPassKeepsSeparatorCollidingLocations(t *testing.T) {
	a := record("1", "A")
	a.State, a.NationalRemotenessAreas, a.SA4Name, a.LGAName = "B", "C", "D", "E_F"
	ab := record("2", "A_B")
	ab.State, ab.NationalRemotenessAreas, ab.SA4Name, ab.LGAName = "C", "D", "E", "F"

	res := run(t, Options{Dedup: DedupTwoPass}, []crash.Record{a, ab})
	locs, err := res.Locations.Column(KeyLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"B_C_D_E_F", "C_D_E_F"}, locs)

	known := map[string]bool{}
	for _, id := range locs {
		known[id] = true
	}
	for _, row := range res.CrashLocation.Rows {
		assert.True(t, known[row[1]], "dangling location %s", row[1])
	}
}

func TestTransform_DuplicatePersonPolicy(t *testing.T) {
	recs := []crash.Record{record("1", "100"), record("1", "200")}

	res := run(t, Options{DuplicatePerson: DuplicatePersonWarn}, recs)
	assert.Equal(t, 2, res.Persons.Len())
	assert.Equal(t, 1, res.Stats.DuplicatePersons)

	_, err := New(Options{DuplicatePerson: DuplicatePersonFail}).Transform(context.Background(), recs)
	var dup *crash.DuplicatePersonError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"1"}, dup.IDs)
}

func TestTransform_EmptyInput(t *testing.T) {
	res := run(t, Options{}, nil)
	tables := res.Tables()
	require.Len(t, tables, 7)
	for _, tbl := range tables {
		assert.Zero(t, tbl.Len(), tbl.Name)
		assert.NotEmpty(t, tbl.Columns, tbl.Name)
	}
}

func TestTransform_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Transform(ctx, dataset(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseOptions(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeA, "MODE_A": ModeA, "a": ModeA, "crash": ModeA, "mode_b": ModeB, "Location": ModeB} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("MODE_C")
	assert.Error(t, err)

	s, err := ParseDedupStrategy("two-pass")
	require.NoError(t, err)
	assert.Equal(t, DedupTwoPass, s)
	_, err = ParseDedupStrategy("triple")
	assert.Error(t, err)

	p, err := ParseDuplicatePersonPolicy("FAIL")
	require.NoError(t, err)
	assert.Equal(t, DuplicatePersonFail, p)
	_, err = ParseDuplicatePersonPolicy("ignore")
	assert.Error(t, err)
}
