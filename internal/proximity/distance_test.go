package proximity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testFace() FaceRegionMap {
	return FaceRegionMap{
		"mouth":         {X: 320, Y: 300},
		"nose":          {X: 320, Y: 260},
		"left_eye":      {X: 290, Y: 230},
		"right_eye":     {X: 350, Y: 230},
		"left_eyebrow":  {X: 290, Y: 210},
		"right_eyebrow": {X: 350, Y: 210},
		"forehead":      {X: 320, Y: 180},
	}
}

func TestCompute_EmptyInputs(t *testing.T) {
	tests := []struct {
		name  string
		hands []Point
		face  FaceRegionMap
	}{
		{name: "no hands", hands: nil, face: testFace()},
		{name: "no face", hands: []Point{{X: 10, Y: 10}}, face: FaceRegionMap{}},
		{name: "neither", hands: []Point{}, face: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.hands, tt.face, DefaultSensitivity())

			if !math.IsInf(got.Distance, 1) {
				t.Errorf("Distance = %f, want +Inf", got.Distance)
			}
			if got.Region != "" || got.HandPoint != nil || got.FacePoint != nil {
				t.Errorf("expected optional fields unset, got %+v", got)
			}
			if !got.Empty() {
				t.Error("Empty() = false, want true")
			}
		})
	}
}

func TestCompute_ClosestPair(t *testing.T) {
	hands := []Point{
		{X: 100, Y: 100},
		{X: 320, Y: 310}, // 10px below the mouth
	}

	got := Compute(hands, testFace(), Sensitivity{})

	want := Sample{
		Distance:  10,
		Region:    "mouth",
		HandPoint: &Point{X: 320, Y: 310},
		FacePoint: &Point{X: 320, Y: 300},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_SensitivityChangesWinner(t *testing.T) {
	face := FaceRegionMap{
		"mouth":    {X: 0, Y: 0},
		"forehead": {X: 100, Y: 0},
	}
	// Hand sits 40px from the mouth and 60px from the forehead.
	hands := []Point{{X: 40, Y: 0}}

	t.Run("unweighted picks mouth", func(t *testing.T) {
		got := Compute(hands, face, Sensitivity{})
		if got.Region != "mouth" {
			t.Errorf("Region = %q, want mouth", got.Region)
		}
	})

	t.Run("sensitive forehead wins", func(t *testing.T) {
		got := Compute(hands, face, Sensitivity{"forehead": 2.0})
		if got.Region != "forehead" {
			t.Errorf("Region = %q, want forehead", got.Region)
		}
		if math.Abs(got.Distance-30) > 1e-9 {
			t.Errorf("Distance = %f, want 30", got.Distance)
		}
	})
}

func TestCompute_UniformScalingKeepsPair(t *testing.T) {
	hands := []Point{{X: 300, Y: 240}, {X: 200, Y: 400}, {X: 330, Y: 190}}
	base := DefaultSensitivity()

	want := Compute(hands, testFace(), base)

	for _, k := range []float64{0.25, 0.5, 2, 10} {
		scaled := make(Sensitivity, len(base))
		for name, w := range base {
			scaled[name] = w * k
		}
		got := Compute(hands, testFace(), scaled)

		if got.Region != want.Region {
			t.Errorf("scale %v: Region = %q, want %q", k, got.Region, want.Region)
		}
		if diff := cmp.Diff(want.HandPoint, got.HandPoint); diff != "" {
			t.Errorf("scale %v: hand point mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestCompute_DeterministicTieBreak(t *testing.T) {
	face := FaceRegionMap{
		"left_eye":  {X: 0, Y: 0},
		"right_eye": {X: 20, Y: 0},
	}
	hands := []Point{{X: 10, Y: 0}}

	first := Compute(hands, face, Sensitivity{})
	for i := 0; i < 50; i++ {
		got := Compute(hands, face, Sensitivity{})
		if got.Region != first.Region {
			t.Fatalf("iteration %d: Region = %q, want %q", i, got.Region, first.Region)
		}
	}
	if first.Region != "left_eye" {
		t.Errorf("Region = %q, want left_eye (first in name order)", first.Region)
	}
}

func TestCompute_DoesNotMutateInputs(t *testing.T) {
	hands := []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	face := testFace()
	sens := DefaultSensitivity()

	handsCopy := append([]Point(nil), hands...)
	faceCopy := FaceRegionMap{}
	for k, v := range face {
		faceCopy[k] = v
	}
	sensCopy := sens.Clone()

	Compute(hands, face, sens)

	if diff := cmp.Diff(handsCopy, hands); diff != "" {
		t.Errorf("hands mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(faceCopy, face); diff != "" {
		t.Errorf("face mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sensCopy, sens); diff != "" {
		t.Errorf("sensitivity mutated (-want +got):\n%s", diff)
	}
}

func TestSensitivity_Weight(t *testing.T) {
	sens := Sensitivity{
		"eye":     1.5,
		"eyebrow": 1.1,
		"mouth":   1.3,
		"broken":  -2,
	}

	tests := []struct {
		region string
		want   float64
	}{
		{region: "mouth", want: 1.3},
		{region: "left_eye", want: 1.5},
		{region: "right_eye", want: 1.5},
		{region: "left_eyebrow", want: 1.1},
		{region: "upper_mouth", want: 1.3},
		{region: "forehead", want: DefaultWeight},
		{region: "broken", want: DefaultWeight},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			if got := sens.Weight(tt.region); got != tt.want {
				t.Errorf("Weight(%q) = %f, want %f", tt.region, got, tt.want)
			}
		})
	}

	t.Run("substring match without eyebrow key", func(t *testing.T) {
		s := Sensitivity{"eye": 1.5}
		if got := s.Weight("left_eyebrow"); got != 1.5 {
			t.Errorf("Weight(left_eyebrow) = %f, want 1.5", got)
		}
	})
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"left_eye":      "eye",
		"right_eyebrow": "eyebrow",
		"mouth":         "mouth",
		"left_":         "",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLevel_Ordering(t *testing.T) {
	if !Normal.Less(Warning) || !Warning.Less(Critical) {
		t.Error("expected Normal < Warning < Critical")
	}
	if Max(Critical, Warning) != Critical {
		t.Error("Max(Critical, Warning) should be Critical")
	}
	if Max(Normal, Warning) != Warning {
		t.Error("Max(Normal, Warning) should be Warning")
	}

	for _, l := range []Level{Normal, Warning, Critical} {
		if got := ParseLevel(l.String()); got != l {
			t.Errorf("ParseLevel(%q) = %v, want %v", l.String(), got, l)
		}
	}
	if got := ParseLevel("critical"); got != Critical {
		t.Errorf("ParseLevel(critical) = %v, want CRITICAL", got)
	}
	if got := ParseLevel("bogus"); got != Normal {
		t.Errorf("ParseLevel(bogus) = %v, want NORMAL", got)
	}
}

func TestSample_MarshalJSON(t *testing.T) {
	empty, err := json.Marshal(NoSample())
	if err != nil {
		t.Fatalf("Marshal(NoSample()) error = %v", err)
	}
	if string(empty) != `{"distance":null}` {
		t.Errorf("Marshal(NoSample()) = %s", empty)
	}

	s := Sample{Distance: 12.5, Region: "mouth", HandPoint: &Point{X: 1, Y: 2}}
	got, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"region":"mouth","hand_point":{"x":1,"y":2},"distance":12.5}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
