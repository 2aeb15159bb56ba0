package controllers

import (
	"context"
	"fmt"
	"testing"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
)

func BenchmarkCreateAirport(b *testing.B) {
	f := newFixture(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := f.airline.Dispatch(ctx, f.admin, &v1alpha1.MutationRequest{
			Table:  "Airport",
			Action: v1alpha1.ActionCreate,
			Values: map[string]string{
				"id_airport": fmt.Sprintf("%03d", i%1000),
				"name":       "Bench Airport",
				"city":       "City",
				"country":    "Country",
			},
		})
		if err != nil && i < 1000 {
			b.Fatalf("create failed: %v", err)
		}
	}
}

func BenchmarkListSortedVsDefault(b *testing.B) {
	f := newFixture(b)
	ctx := context.Background()

	for i := 0; i < 2000; i++ {
		_, err := f.airline.Create(ctx, f.admin, "Airplane", map[string]string{
			"model":               fmt.Sprintf("Model %d", i%37),
			"registration_number": fmt.Sprintf("RA-%05d", i),
			"capacity":            "180",
		})
		if err != nil {
			b.Fatalf("seed failed: %v", err)
		}
	}

	b.ResetTimer()
	b.Run("DefaultOrder", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = f.airline.List(ctx, f.admin, "Airplane", v1alpha1.ListQuery{Page: "100"})
		}
	})

	b.Run("SortByModel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = f.airline.List(ctx, f.admin, "Airplane", v1alpha1.ListQuery{Page: "100", SortBy: "model", Order: "desc"})
		}
	})
}
