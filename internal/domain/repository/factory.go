package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Orders() OrderRepository
	Fulfillments() FulfillmentRepository
	Webhooks() WebhookRepository
}
