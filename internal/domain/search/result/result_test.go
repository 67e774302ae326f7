package result

import "testing"

func TestNew_RoundsScore(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0.123456789, 0.1235},
		{0.12344, 0.1234},
		{0.5, 0.5},
		{0, 0},
		{1.99999, 2},
	}

	for _, tc := range cases {
		item := New("p-1", "doc", nil, tc.distance)
		if item.Score() != tc.want {
			t.Errorf("New(distance=%v).Score() = %v, expected %v", tc.distance, item.Score(), tc.want)
		}
	}
}

func TestItem_Accessors(t *testing.T) {
	meta := map[string]string{"city": "Austin"}
	item := New("p-42", "electrical permit", meta, 0.25)

	if item.ID() != "p-42" {
		t.Errorf("ID() = %q", item.ID())
	}
	if item.Document() != "electrical permit" {
		t.Errorf("Document() = %q", item.Document())
	}
	if item.Metadata()["city"] != "Austin" {
		t.Errorf("Metadata() = %v", item.Metadata())
	}
}
