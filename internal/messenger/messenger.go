package messenger

import (
	"fmt"

	"github.com/mintbay/nft-marketplace/internal/config"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// MessageService fans committed market events out to downstream consumers
// over AMQP.
type MessageService interface {
	GetQueue(item Item) (*amqp.Queue, error)
	SendMessage(item Item, body []byte) error
	ConsumeMessages(item Item, callback func(msg string)) error
	GetQueueSize(item Item) (*int, error)
}

type Messenger struct {
	amqpUri string
	conn    *amqp.Connection
}

type Item string

var (
	MarketEvents Item = "market.events"
)

func (i Item) queue() string {
	return fmt.Sprintf("%s.%s", config.Get().Index, i)
}

func NewMessenger(amqpUri string) MessageService {
	return &Messenger{amqpUri: amqpUri}
}

func (m *Messenger) GetQueue(item Item) (*amqp.Queue, error) {
	ch, err := m.openChannel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	queue, err := ch.QueueDeclare(item.queue(), true, false, false, false, nil)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("queue", item.queue())).Error("Messenger: Failed to create queue")
		return nil, err
	}

	return &queue, nil
}

func (m *Messenger) SendMessage(item Item, body []byte) error {
	ch, err := m.openChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(item.queue(), true, false, false, false, nil); err != nil {
		return err
	}

	err = ch.Publish("", item.queue(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("queue", item.queue())).Error("Messenger: Failed to publish message")
		return err
	}

	return nil
}

func (m *Messenger) ConsumeMessages(item Item, callback func(msg string)) error {
	ch, err := m.openChannel()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(item.queue(), "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			callback(string(msg.Body))
		}
	}()

	return nil
}

func (m *Messenger) GetQueueSize(item Item) (*int, error) {
	queue, err := m.GetQueue(item)
	if err != nil {
		return nil, err
	}

	return &queue.Messages, nil
}

func (m *Messenger) openChannel() (*amqp.Channel, error) {
	if m.conn == nil || m.conn.IsClosed() {
		conn, err := amqp.Dial(m.amqpUri)
		if err != nil {
			zap.L().With(zap.Error(err)).Error("Messenger: Failed to connect")
			return nil, err
		}
		m.conn = conn
	}

	return m.conn.Channel()
}
