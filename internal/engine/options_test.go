package engine

import (
	"testing"
	"time"
)

func TestOptionsNormalize_LeaseCoversWorstCasePass(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts Options
		want time.Duration
	}{
		{
			// 50 messages × 10s sequentially, plus one timeout of margin.
			name: "defaults",
			opts: Options{},
			want: 510 * time.Second,
		},
		{
			name: "configured lease below floor is raised",
			opts: Options{BatchSize: 4, SendTimeout: 500 * time.Millisecond, Workers: 1, ClaimLease: 50 * time.Millisecond},
			want: 2500 * time.Millisecond,
		},
		{
			name: "configured lease above floor is kept",
			opts: Options{BatchSize: 2, SendTimeout: time.Second, Workers: 2, ClaimLease: time.Hour},
			want: time.Hour,
		},
		{
			name: "workers divide the per-pass worst case",
			opts: Options{BatchSize: 10, SendTimeout: time.Second, Workers: 5, ClaimLease: time.Millisecond},
			want: 3 * time.Second,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.opts.normalize()
			if tc.opts.ClaimLease != tc.want {
				t.Fatalf("normalize() ClaimLease = %v, want %v", tc.opts.ClaimLease, tc.want)
			}
		})
	}
}
