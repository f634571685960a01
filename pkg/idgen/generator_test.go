package idgen

import "testing"

func TestNewStrategies(t *testing.T) {
	cases := []struct {
		strategy string
		length   int
		wantLen  int
	}{
		{"", 0, 36},
		{StrategyUUID, 0, 36},
		{StrategyULID, 0, 26},
		{StrategyKSUID, 0, 27},
		{StrategyNanoID, 0, DefaultNanoIDSize},
		{StrategyNanoID, 12, 12},
		{StrategyCUID2, 0, DefaultCUID2Length},
		{"CUID2", 10, 10},
	}

	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			gen, err := New(Config{Strategy: tc.strategy, Length: tc.length})
			if err != nil {
				t.Fatalf("New(%q): %v", tc.strategy, err)
			}

			seen := make(map[string]struct{})
			for i := 0; i < 50; i++ {
				id, err := gen.Generate()
				if err != nil {
					t.Fatalf("Generate: %v", err)
				}
				if len(id) != tc.wantLen {
					t.Fatalf("len(%q) = %d, want %d", id, len(id), tc.wantLen)
				}
				if _, dup := seen[id]; dup {
					t.Fatalf("duplicate id %q", id)
				}
				seen[id] = struct{}{}
			}
		})
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New(Config{Strategy: "snowflake"}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNewRejectsBadLength(t *testing.T) {
	if _, err := New(Config{Strategy: StrategyNanoID, Length: 64}); err == nil {
		t.Fatal("expected error for nanoid length 64")
	}
	if _, err := New(Config{Strategy: StrategyCUID2, Length: 1}); err == nil {
		t.Fatal("expected error for cuid2 length 1")
	}
}
