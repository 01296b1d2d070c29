package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vatbill/entity"
	"vatbill/internal/config"
)

const (
	collectionUsers    = "users"
	collectionInvoices = "invoices"
	collectionVatRates = "vat_rates"
)

// MongoDB is the client for the document platform. Connections are
// short-lived: each call connects, runs its operation and disconnects.
type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

// GetUser resolves a bearer token to the account it belongs to.
func (m *MongoDB) GetUser(token string) (*entity.User, error) {
	ctx := context.Background()
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "token", Value: token}}
	var user entity.User
	err = collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// InsertInvoice persists a new invoice document. The store assigns the
// identifier; callers read it back from the entity.
func (m *MongoDB) InsertInvoice(ctx context.Context, inv *entity.Invoice) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	if inv.Id == "" {
		inv.Id = uuid.NewString()
	}
	collection := connection.Database(m.database).Collection(collectionInvoices)
	_, err = collection.InsertOne(ctx, inv)
	if err != nil {
		return fmt.Errorf("mongodb insert invoice: %w", err)
	}
	return nil
}

// GetInvoice fetches an invoice by identifier. A missing document is
// reported as (nil, nil); the caller decides what absence means.
func (m *MongoDB) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvoices)
	filter := bson.D{{Key: "id", Value: id}}
	var inv entity.Invoice
	err = collection.FindOne(ctx, filter).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find invoice: %w", err)
	}
	return &inv, nil
}

// ListInvoices returns the owner's invoices, newest first. A non-nil
// paid filter narrows the result to paid or unpaid documents.
func (m *MongoDB) ListInvoices(ctx context.Context, ownerId string, paid *bool) ([]*entity.Invoice, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvoices)
	filter := bson.D{{Key: "owner_id", Value: ownerId}}
	if paid != nil {
		filter = append(filter, bson.E{Key: "paid", Value: *paid})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []*entity.Invoice
	if err = cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("mongodb decode invoices: %w", err)
	}
	return invoices, nil
}

// SetInvoicePaid applies the unpaid-to-paid transition as a single
// conditional update: the filter matches only while paid is false, so
// two racing payers cannot both win. Returns false when the document
// was not matched, either because it is already paid or because the
// owner does not match.
func (m *MongoDB) SetInvoicePaid(ctx context.Context, inv *entity.Invoice) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvoices)
	filter := bson.D{
		{Key: "id", Value: inv.Id},
		{Key: "owner_id", Value: inv.OwnerId},
		{Key: "paid", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "paid", Value: true},
		{Key: "vat_rate", Value: inv.VatRate},
		{Key: "vat", Value: inv.Vat},
		{Key: "total", Value: inv.Total},
		{Key: "updated_at", Value: inv.UpdatedAt},
		{Key: "paid_at", Value: inv.PaidAt},
	}}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb update invoice: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// GetVatRate fetches the stored rate for an upper-case country code.
// A missing record is reported as (nil, nil).
func (m *MongoDB) GetVatRate(ctx context.Context, country string) (*entity.VatRate, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionVatRates)
	filter := bson.D{{Key: "country", Value: country}}
	var rate entity.VatRate
	err = collection.FindOne(ctx, filter).Decode(&rate)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find vat rate: %w", err)
	}
	return &rate, nil
}
