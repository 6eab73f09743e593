package models

import (
	"fmt"
	"time"

	"binarymarket/handlers/math/market"
)

// Pricing models a market row can use. They never share state columns.
const (
	PricingLMSR = "lmsr"
	PricingPool = "pool"
)

// Market is the persisted form of one binary market. LMSR markets use
// B/QYes/QNo; legacy pool markets use the pool columns.
type Market struct {
	ID                      int64      `json:"id" gorm:"primaryKey"`
	QuestionTitle           string     `json:"questionTitle" gorm:"not null;size:160"`
	Description             string     `json:"description" gorm:"type:text"`
	DescriptionHTML         string     `json:"descriptionHtml" gorm:"type:text"`
	Category                string     `json:"category" gorm:"default:general;index"`
	YesLabel                string     `json:"yesLabel" gorm:"default:YES"`
	NoLabel                 string     `json:"noLabel" gorm:"default:NO"`
	ResolutionDateTime      time.Time  `json:"resolutionDateTime"`
	FinalResolutionDateTime *time.Time `json:"finalResolutionDateTime,omitempty"`
	CreatorAccountID        int64      `json:"creatorAccountId" gorm:"index"`

	PricingModel string `json:"pricingModel" gorm:"not null;default:lmsr;size:10"`

	// LMSR state
	B    uint64 `json:"b" gorm:"not null;default:0"`
	QYes uint64 `json:"qYes" gorm:"not null;default:0"`
	QNo  uint64 `json:"qNo" gorm:"not null;default:0"`

	// Legacy proportional pool state
	YesPool                 uint64 `json:"yesPool" gorm:"not null;default:0"`
	NoPool                  uint64 `json:"noPool" gorm:"not null;default:0"`
	TotalAtResolution       uint64 `json:"totalAtResolution" gorm:"not null;default:0"`
	WinningPoolAtResolution uint64 `json:"winningPoolAtResolution" gorm:"not null;default:0"`

	// Version is bumped by every committed state change (optimistic locking).
	Version          uint64 `json:"version" gorm:"not null;default:0"`
	IsResolved       bool   `json:"isResolved" gorm:"not null;default:false;index"`
	ResolutionResult string `json:"resolutionResult" gorm:"size:3"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// resolution returns the stored outcome, nil while unresolved.
func (m *Market) resolution() *market.Outcome {
	if !m.IsResolved {
		return nil
	}
	o, err := market.ParseOutcome(m.ResolutionResult)
	if err != nil {
		return nil
	}
	return &o
}

// State projects the LMSR columns into the engine's MarketState.
func (m *Market) State() market.MarketState {
	return market.MarketState{
		QYes:       m.QYes,
		QNo:        m.QNo,
		B:          m.B,
		Resolution: m.resolution(),
	}
}

// Pool projects the legacy pool columns.
func (m *Market) Pool() market.PoolState {
	return market.PoolState{
		YesPool:                 m.YesPool,
		NoPool:                  m.NoPool,
		Resolution:              m.resolution(),
		TotalAtResolution:       m.TotalAtResolution,
		WinningPoolAtResolution: m.WinningPoolAtResolution,
	}
}

// Settlement returns the pricing model settlement should dispatch on.
func (m *Market) Settlement() (market.Settleable, error) {
	switch m.PricingModel {
	case PricingLMSR, "":
		return m.State(), nil
	case PricingPool:
		return m.Pool(), nil
	}
	return nil, fmt.Errorf("unknown pricing model %q", m.PricingModel)
}

// Chances returns the displayed YES/NO probabilities for either model.
func (m *Market) Chances() (yes, no float64) {
	if m.PricingModel == PricingPool {
		return m.Pool().Chances()
	}
	return market.Price(m.State())
}

// MarketPublic is the API view of a market.
type MarketPublic struct {
	ID                 int64      `json:"id"`
	QuestionTitle      string     `json:"questionTitle"`
	DescriptionHTML    string     `json:"descriptionHtml"`
	Category           string     `json:"category"`
	YesLabel           string     `json:"yesLabel"`
	NoLabel            string     `json:"noLabel"`
	ResolutionDateTime time.Time  `json:"resolutionDateTime"`
	PricingModel       string     `json:"pricingModel"`
	B                  uint64     `json:"b,omitempty"`
	QYes               uint64     `json:"qYes"`
	QNo                uint64     `json:"qNo"`
	YesPool            uint64     `json:"yesPool,omitempty"`
	NoPool             uint64     `json:"noPool,omitempty"`
	PriceYes           float64    `json:"priceYes"`
	PriceNo            float64    `json:"priceNo"`
	IsResolved         bool       `json:"isResolved"`
	ResolutionResult   string     `json:"resolutionResult,omitempty"`
	ResolvedAt         *time.Time `json:"resolvedAt,omitempty"`
	Version            uint64     `json:"version"`
}

// ToPublic converts Market to MarketPublic with current prices filled in.
func (m *Market) ToPublic() MarketPublic {
	yes, no := m.Chances()
	return MarketPublic{
		ID:                 m.ID,
		QuestionTitle:      m.QuestionTitle,
		DescriptionHTML:    m.DescriptionHTML,
		Category:           m.Category,
		YesLabel:           m.YesLabel,
		NoLabel:            m.NoLabel,
		ResolutionDateTime: m.ResolutionDateTime,
		PricingModel:       m.PricingModel,
		B:                  m.B,
		QYes:               m.QYes,
		QNo:                m.QNo,
		YesPool:            m.YesPool,
		NoPool:             m.NoPool,
		PriceYes:           yes,
		PriceNo:            no,
		IsResolved:         m.IsResolved,
		ResolutionResult:   m.ResolutionResult,
		ResolvedAt:         m.FinalResolutionDateTime,
		Version:            m.Version,
	}
}
