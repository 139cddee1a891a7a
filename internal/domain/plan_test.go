package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int) time.Time { return time.Date(y, 3, 1, 0, 0, 0, 0, time.UTC) }

func TestHorizonSingleIndividual(t *testing.T) {
	p := &Plan{}
	p.Household.CurrentYear = 2026
	p.Household.Individuals = []Individual{
		{BirthDate: date(1965), LifeExpectancyYrs: 90},
	}
	// death year 1965+90=2055, horizon = 2055-2026+1 = 30.
	assert.Equal(t, 30, p.Horizon())
	assert.Equal(t, 30, p.IndividualHorizon(0))
}

func TestHorizonMarriedUsesLongerLife(t *testing.T) {
	p := &Plan{}
	p.Household.CurrentYear = 2026
	p.Household.Individuals = []Individual{
		{BirthDate: date(1965), LifeExpectancyYrs: 85}, // death year 2050, horizon 25
		{BirthDate: date(1968), LifeExpectancyYrs: 95}, // death year 2063, horizon 38
	}
	assert.Equal(t, 38, p.Horizon())
	assert.Equal(t, 25, p.IndividualHorizon(0))
	assert.Equal(t, 38, p.IndividualHorizon(1))
}

func TestDeathYearIndexSingleIsSentinel(t *testing.T) {
	p := &Plan{}
	p.Household.CurrentYear = 2026
	p.Household.Individuals = []Individual{
		{BirthDate: date(1965), LifeExpectancyYrs: 90},
	}
	nd, id, is := p.DeathYearIndex()
	assert.Equal(t, p.Horizon(), nd)
	assert.Equal(t, -1, id)
	assert.Equal(t, -1, is)
}

func TestDeathYearIndexEqualHorizonsIsSentinel(t *testing.T) {
	p := &Plan{}
	p.Household.CurrentYear = 2026
	p.Household.Individuals = []Individual{
		{BirthDate: date(1965), LifeExpectancyYrs: 90},
		{BirthDate: date(1965), LifeExpectancyYrs: 90},
	}
	nd, id, is := p.DeathYearIndex()
	assert.Equal(t, p.Horizon(), nd)
	assert.Equal(t, -1, id)
	assert.Equal(t, -1, is)
}

func TestDeathYearIndexShorterLivedSpouseDiesFirst(t *testing.T) {
	p := &Plan{}
	p.Household.CurrentYear = 2026
	p.Household.Individuals = []Individual{
		{BirthDate: date(1965), LifeExpectancyYrs: 85}, // horizon 25, dies first
		{BirthDate: date(1968), LifeExpectancyYrs: 95}, // horizon 38
	}
	nd, id, is := p.DeathYearIndex()
	assert.Equal(t, 25, nd)
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, is)
}
