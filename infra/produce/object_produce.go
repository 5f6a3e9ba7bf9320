package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ObjectExchange = "object.exchange"

	// ObjectExpiredQueue carries locators whose TTL ran out. Gateways
	// consume it to delete the physical bytes; the control plane only
	// removes the metadata row.
	ObjectExpiredQueue      = "object.expired"
	ObjectExpiredRoutingKey = "object.expired"
)

// ExpiredLocatorMessage describes one physical copy evicted by the expiry
// sweep or a clean_object call.
type ExpiredLocatorMessage struct {
	LocatorID   uint   `json:"locator_id"`
	LocationTag string `json:"location_tag"`
	Cloud       string `json:"cloud"`
	Region      string `json:"region"`
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	VersionID   string `json:"version_id,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// ObjectService handles publishing object lifecycle events
type ObjectService struct {
	channel *amqp.Channel
}

func InitObjectService(channel *amqp.Channel) *ObjectService {
	service := &ObjectService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		ObjectExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Object exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		ObjectExpiredQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Object expired queue: " + err.Error())
	}

	err = channel.QueueBind(
		ObjectExpiredQueue,
		ObjectExpiredRoutingKey,
		ObjectExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Object expired queue: " + err.Error())
	}

	return service
}

// PublishObjectExpired publishes an evicted locator so a gateway can remove
// the physical bytes.
func (s *ObjectService) PublishObjectExpired(ctx context.Context, msg ExpiredLocatorMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		ObjectExchange,
		ObjectExpiredRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
