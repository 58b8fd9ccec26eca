package models

import (
	"github.com/localnerve/jam-build-crm/internal/types"
)

// LeadSources are the accepted values of leadSource on leads and clients
var LeadSources = []string{
	"Google", "Email", "Phone", "Website", "Referral",
	"Facebook", "TikTok", "Instagram", "Social Media", "Other",
}

// Service is an offering leads and clients are attached to.
// Leads and Clients are reference arrays mirrored by Lead.Service and Client.Service.
// The remaining lists are content owned by the service row itself.
type Service struct {
	Base
	Name         string                       `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Details      string                       `gorm:"size:1000" json:"details"`
	Leads        JSONList[types.ObjectID]     `json:"leads"`
	Clients      JSONList[types.ObjectID]     `json:"clients"`
	DetailItems  JSONList[ServiceDetail]      `gorm:"column:detail_items" json:"detailItems"`
	Requirements JSONList[ServiceRequirement] `gorm:"column:requirements" json:"requirements"`
	Prices       JSONList[ServicePrice]       `gorm:"column:prices" json:"prices"`
	FAQs         JSONList[ServiceFAQ]         `gorm:"column:faqs" json:"faqs"`
}

// ServiceItem is an entry of one of a service's embedded lists.
type ServiceItem interface {
	ItemID() types.ObjectID
}

// ServiceDetail is a titled feature paragraph of a service, with an optional image URL.
type ServiceDetail struct {
	ID      types.ObjectID `json:"_id"`
	Title   string         `json:"title"`
	Details string         `json:"details"`
	Image   string         `json:"image,omitempty"`
}

// ServiceRequirement is something a client has to provide before work starts.
type ServiceRequirement struct {
	ID      types.ObjectID `json:"_id"`
	Title   string         `json:"title"`
	Details string         `json:"details"`
}

// Money is an amount in a currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ServicePrice is a priced package with the items it includes.
type ServicePrice struct {
	ID        types.ObjectID `json:"_id"`
	Title     string         `json:"title"`
	ListItems []string       `json:"listItems"`
	Price     Money          `json:"price"`
}

// ServiceFAQ is a question answered on the service page.
type ServiceFAQ struct {
	ID       types.ObjectID `json:"_id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
}

func (d ServiceDetail) ItemID() types.ObjectID      { return d.ID }
func (r ServiceRequirement) ItemID() types.ObjectID { return r.ID }
func (p ServicePrice) ItemID() types.ObjectID       { return p.ID }
func (f ServiceFAQ) ItemID() types.ObjectID         { return f.ID }

// Lead is a prospective client, optionally interested in one service
type Lead struct {
	Base
	Owner      *types.ObjectID `gorm:"type:varchar(24);index" json:"owner"`
	Fullname   string          `gorm:"size:100;index" json:"fullname"`
	Details    string          `gorm:"size:1000" json:"details,omitempty"`
	Email      string          `gorm:"size:50;not null;uniqueIndex" json:"email"`
	Telephone  string          `gorm:"size:20;index" json:"telephone,omitempty"`
	City       string          `gorm:"size:100" json:"city,omitempty"`
	Country    string          `gorm:"size:60;not null" json:"country"`
	Company    string          `gorm:"size:100" json:"company,omitempty"`
	LeadSource string          `gorm:"size:20" json:"leadSource,omitempty"`
	Service    *types.ObjectID `gorm:"type:varchar(24);index" json:"service"`
}

// Client is a converted lead owned by one user, with attached files
type Client struct {
	Base
	Owner      types.ObjectID   `gorm:"type:varchar(24);not null;index" json:"owner"`
	Fullname   string           `gorm:"size:100;not null;index" json:"fullname"`
	Details    string           `gorm:"size:1000" json:"details,omitempty"`
	Email      string           `gorm:"size:50;not null;index" json:"email"`
	Telephone  string           `gorm:"size:20;index" json:"telephone,omitempty"`
	City       string           `gorm:"size:100" json:"city,omitempty"`
	Country    string           `gorm:"size:60;not null" json:"country"`
	Company    string           `gorm:"size:100" json:"company,omitempty"`
	LeadSource string           `gorm:"size:20" json:"leadSource,omitempty"`
	Service    *types.ObjectID  `gorm:"type:varchar(24);index" json:"service"`
	Files      JSONList[string] `json:"files"`
}

// TableName overrides the table name for Service
func (Service) TableName() string {
	return "services"
}

// TableName overrides the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// TableName overrides the table name for Client
func (Client) TableName() string {
	return "clients"
}
