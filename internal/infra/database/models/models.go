package models

import (
	"time"
)

type Dataset struct {
	ID    string `json:"id" gorm:"primaryKey;type:text"`
	Name  string `json:"name" gorm:"type:text;index:dataset_name,unique"`
	Title string `json:"title" gorm:"type:text"`
	Type  string `json:"type" gorm:"type:text;index"`
	State string `json:"state" gorm:"type:text;not null;default:active"`

	OwnerOrg     string `json:"owner_org" gorm:"type:text;index"`
	OwnerOrgDest string `json:"owner_org_dest" gorm:"type:text"`

	CurationState string `json:"curation_state" gorm:"type:text;index"`
	CuratorID     string `json:"curator_id" gorm:"type:text"`
	CreatorUserID string `json:"creator_user_id" gorm:"type:text;index"`

	Notes                   string `json:"notes" gorm:"type:text"`
	DataCollector           string `json:"data_collector" gorm:"type:text"`
	DataCollectionTechnique string `json:"data_collection_technique" gorm:"type:text"`
	UnitOfMeasurement       string `json:"unit_of_measurement" gorm:"type:text"`
	Keywords                string `json:"keywords" gorm:"type:text"`
	ExternalAccessLevel     string `json:"external_access_level" gorm:"type:text"`

	CDate time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Container struct {
	ID    string `json:"id" gorm:"primaryKey;type:text"`
	Name  string `json:"name" gorm:"type:text;index:container_name,unique"`
	Title string `json:"title" gorm:"type:text"`
}

type Member struct {
	ContainerID string    `json:"container_id" gorm:"type:text;primaryKey"`
	Container   Container `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	UserID      string    `json:"user_id" gorm:"type:text;primaryKey;index"`
	Capacity    string    `json:"capacity" gorm:"type:text;not null"`
}

type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:text"`
	Name     string `json:"name" gorm:"type:text;index:user_name,unique"`
	Email    string `json:"email" gorm:"type:text"`
	Sysadmin bool   `json:"sysadmin" gorm:"type:boolean;not null;default:false"`
	APIKey   string `json:"-" gorm:"type:text;index:user_apikey,unique"`
}

type CurationActivity struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DatasetID string    `json:"dataset_id" gorm:"type:text;index"`
	Type      string    `json:"activity_type" gorm:"type:text;index"`
	ActorID   string    `json:"actor_id" gorm:"type:text"`
	Message   string    `json:"message" gorm:"type:text"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type AccessRequest struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     string    `json:"user_id" gorm:"type:text;index"`
	Message    string    `json:"message" gorm:"type:text"`
	Role       string    `json:"role" gorm:"type:text"`
	Status     string    `json:"status" gorm:"type:text;not null;default:requested;index"`
	ObjectType string    `json:"object_type" gorm:"type:text;not null"`
	ObjectID   string    `json:"object_id" gorm:"type:text;index"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
