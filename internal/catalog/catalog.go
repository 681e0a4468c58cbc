// Package catalog builds the grouped, display-oriented view of the store.
// It is a pure function of its input and holds no state between calls;
// callers rebuild it after every store mutation.
package catalog

import (
	"sort"

	"lol-account-manager/internal/domain"
)

// MaskedSecret is what the projection shows in place of a credential.
// Revealing the real value is a separate, explicit store read.
const MaskedSecret = "***"

type Catalog struct {
	Regions []RegionGroup
}

type RegionGroup struct {
	Region     domain.Region
	Categories []CategoryGroup
}

type CategoryGroup struct {
	Name     string
	Accounts []domain.Account
}

type Option func(*options)

type options struct {
	levelOrder bool
}

// WithLevelOrder orders accounts within each category by descending level,
// stable with respect to the input order.
func WithLevelOrder() Option {
	return func(o *options) { o.levelOrder = true }
}

// Build groups accounts by region then category, preserving the first-seen
// order of both group levels. Secrets are masked in the result.
func Build(accounts []domain.Account, opts ...Option) Catalog {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var regions []RegionGroup
	regionIdx := make(map[domain.Region]int)
	categoryIdx := make(map[domain.Region]map[string]int)

	for _, acc := range accounts {
		ri, ok := regionIdx[acc.Region]
		if !ok {
			ri = len(regions)
			regionIdx[acc.Region] = ri
			categoryIdx[acc.Region] = make(map[string]int)
			regions = append(regions, RegionGroup{Region: acc.Region})
		}

		ci, ok := categoryIdx[acc.Region][acc.Category]
		if !ok {
			ci = len(regions[ri].Categories)
			categoryIdx[acc.Region][acc.Category] = ci
			regions[ri].Categories = append(regions[ri].Categories, CategoryGroup{Name: acc.Category})
		}

		if acc.Secret != "" {
			acc.Secret = MaskedSecret
		}
		regions[ri].Categories[ci].Accounts = append(regions[ri].Categories[ci].Accounts, acc)
	}

	if o.levelOrder {
		for ri := range regions {
			for ci := range regions[ri].Categories {
				accs := regions[ri].Categories[ci].Accounts
				sort.SliceStable(accs, func(i, j int) bool {
					return accs[i].Level > accs[j].Level
				})
			}
		}
	}

	return Catalog{Regions: regions}
}
