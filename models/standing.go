package models

// RankedEntry — строка таблицы результатов, как её отдаёт провайдер.
type RankedEntry struct {
	ID   int64  `json:"id"`
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Misc string `json:"misc,omitempty"`
}
