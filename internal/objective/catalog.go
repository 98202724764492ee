// Package objective holds the catalog of objective templates and the end of
// game scoring that evaluates them.
package objective

import (
	"fmt"

	"github.com/playperu/diplomacy/internal/diplomacy"
)

// Field is the participant statistic an objective is measured on.
type Field string

const (
	FieldMight      Field = "might"
	FieldEconomy    Field = "economy"
	FieldTradeDeals Field = "tradeDealsAccepted"
)

// Constraint says whether the bound stat must end up the highest or the
// lowest across all participants.
type Constraint string

const (
	Highest Constraint = "HIGHEST"
	Lowest  Constraint = "LOWEST"
)

// PublicThreshold is the floor a public might/economy objective must clear.
const PublicThreshold = 50

// Template describes one kind of objective. Describe receives the target
// participant for private templates and the zero value for public ones.
type Template struct {
	Type       diplomacy.ObjectiveType
	Public     bool
	Field      Field
	Constraint Constraint
	Describe   func(target diplomacy.Participant) string
}

// Instantiate builds a PENDING objective for owner from t. target is only
// read for private templates.
func (t Template) Instantiate(gameID, owner string, target diplomacy.Participant) diplomacy.Objective {
	o := diplomacy.Objective{
		GameID:      gameID,
		OwnerID:     owner,
		Description: t.Describe(target),
		Type:        t.Type,
		IsPublic:    t.Public,
		Status:      diplomacy.ObjectivePending,
	}

	marker := 0
	if t.Public {
		marker = PublicThreshold
	} else {
		o.TargetParticipantID = target.ID
	}
	switch t.Field {
	case FieldMight:
		v := marker
		o.TargetMight = &v
	case FieldEconomy:
		v := marker
		o.TargetEconomy = &v
	}
	return o
}

var DefaultPublic = Template{
	Type:       diplomacy.ObjectiveEconomicGrowth,
	Public:     true,
	Field:      FieldEconomy,
	Constraint: Highest,
	Describe:   func(diplomacy.Participant) string { return "Have the highest economy among all players" },
}

var DefaultPrivate = Template{
	Type:       diplomacy.ObjectiveSabotage,
	Field:      FieldEconomy,
	Constraint: Lowest,
	Describe: func(t diplomacy.Participant) string {
		return fmt.Sprintf("Ensure %s has the lowest economy", t.Civilization)
	},
}

var Public = []Template{
	DefaultPublic,
	{
		Type:       diplomacy.ObjectiveMilitaryGrowth,
		Public:     true,
		Field:      FieldMight,
		Constraint: Highest,
		Describe:   func(diplomacy.Participant) string { return "Have the highest might among all players" },
	},
	{
		Type:       diplomacy.ObjectiveTradeDeal,
		Public:     true,
		Field:      FieldTradeDeals,
		Constraint: Highest,
		Describe:   func(diplomacy.Participant) string { return "Have the most number of accepted trade deals" },
	},
}

var Private = []Template{
	DefaultPrivate,
	{
		Type:       diplomacy.ObjectiveSabotage,
		Field:      FieldMight,
		Constraint: Lowest,
		Describe: func(t diplomacy.Participant) string {
			return fmt.Sprintf("Ensure %s has the lowest might", t.Civilization)
		},
	},
}

// Pick returns a uniformly random template from ts, or fallback when the
// list is empty.
func Pick(rng diplomacy.Rand, ts []Template, fallback Template) Template {
	if len(ts) == 0 {
		return fallback
	}
	return ts[rng.IntN(len(ts))]
}
