package entities

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Delivery struct {
	Method     string `json:"method"`
	CityRef    string `json:"cityRef,omitempty"`
	CityName   string `json:"cityName,omitempty"`
	BranchRef  string `json:"branchRef,omitempty"`
	BranchName string `json:"branchName,omitempty"`
}

type Payment struct {
	Method string `json:"method"`
}

// OrderItem это позиция заказа: товар плюс количество.
type OrderItem struct {
	Product
	Quantity int `json:"quantity"`
}

type Order struct {
	ID       string      `json:"id"`
	Date     time.Time   `json:"date"`
	Customer Customer    `json:"customer"`
	Delivery Delivery    `json:"delivery"`
	Payment  Payment     `json:"payment"`
	Items    []OrderItem `json:"items"`
	Total    float64     `json:"total"`
	Status   OrderStatus `json:"status"`
}
