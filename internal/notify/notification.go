package notify

import (
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Notification is one activity feed record. Rows are append only except for IsRead and
// retention sweeps.
type Notification struct {
	models.Base
	Details        string          `gorm:"size:200;not null" json:"details"`
	Type           Type            `gorm:"size:16;not null;index" json:"type"`
	RelatedModel   Domain          `gorm:"size:32;not null" json:"relatedModel"`
	RelatedModelID *types.ObjectID `gorm:"type:varchar(24)" json:"relatedModelID"`
	CreatedBy      types.ObjectID  `gorm:"type:varchar(24);not null;index" json:"createdBy"`
	IsRead         bool            `gorm:"not null;default:false;index" json:"isRead"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Ref rebuilds the typed reference the row was written with.
func (n *Notification) Ref() Ref {
	r := Ref{domain: n.RelatedModel}
	if n.RelatedModelID != nil {
		r.id = *n.RelatedModelID
	}
	return r
}
