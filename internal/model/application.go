package model

import "time"

// Application 一次上传对应的应用
type Application struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"nama_aplikasi"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
