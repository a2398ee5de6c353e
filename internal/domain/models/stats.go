package models

type QueueStats struct {
	OrdersQueue   int `json:"orders_queue"`
	PreparedQueue int `json:"prepared_queue"`
	ShippedQueue  int `json:"shipped_queue"`
}

type Stats struct {
	QueueStats
	EventsLastMinute  int    `json:"events_last_minute"`
	UsingMockStorage  bool   `json:"using_mock_storage"`
	DeliveryGuarantee string `json:"delivery_guarantee"`
}
