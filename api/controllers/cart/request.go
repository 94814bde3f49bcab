package cart

type addLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"gte=1,lte=99"`
}

type setQtyRequest struct {
	Qty int `json:"qty" validate:"gte=1,lte=99"`
}
