package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

// Store implements ports.LedgerStore using MongoDB.
type Store struct {
	client       *mongo.Client
	accounts     *mongo.Collection
	courses      *mongo.Collection
	transactions *mongo.Collection
	runTx        txRunner
}

// txRunner runs fn atomically, committing when it returns nil.
type txRunner func(ctx context.Context, fn func(ctx context.Context) error) error

var _ ports.LedgerStore = (*Store)(nil)

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:       client,
		accounts:     db.Collection(collectionAccounts),
		courses:      db.Collection(collectionCourses),
		transactions: db.Collection(collectionTransactions),
		runTx:        sessionRunner(client),
	}
}

// sessionRunner executes fn inside a multi-document transaction.
// WithTransaction retries the whole callback on transient write conflicts.
func sessionRunner(client *mongo.Client) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		session, err := client.StartSession()
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		return err
	}
}

func (s *Store) Accounts() ports.AccountRepository { return &AccountRepository{col: s.accounts, transactions: s.transactions} }
func (s *Store) Courses() ports.CourseRepository   { return &CourseRepository{col: s.courses} }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// EnsureIndexes creates the unique and lookup indexes the ledger relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}
	if _, err := s.courses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("courses indexes: %w", err)
	}
	_, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "course_id", Value: 1}, {Key: "expires_at", Value: -1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("transactions indexes: %w", err)
	}
	return nil
}

// WithinAccountTx runs fn inside a multi-document transaction. The first
// statement increments lock_version on the account document, so a second
// writer of the same account hits a write conflict and is retried by
// WithTransaction after the first one commits.
func (s *Store) WithinAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		var doc accountDoc
		err := s.accounts.FindOneAndUpdate(ctx,
			bson.M{"_id": accountID},
			bson.M{"$inc": bson.M{"lock_version": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		account, err := doc.toDomain()
		if err != nil {
			return err
		}
		return fn(ctx, &ledgerTx{store: s, account: account})
	})
}

type ledgerTx struct {
	store   *Store
	account *domain.Account
}

func (t *ledgerTx) Account() *domain.Account { return t.account }

func (t *ledgerTx) LatestPayment(ctx context.Context, courseID string) (*domain.Transaction, error) {
	return t.store.LatestPayment(ctx, t.account.ID, courseID)
}

func (t *ledgerTx) Append(ctx context.Context, e *domain.Transaction) error {
	doc, err := newTransactionDoc(e)
	if err != nil {
		return err
	}
	if _, err := t.store.transactions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	v, err := toDecimal128(balance)
	if err != nil {
		return err
	}
	_, err = t.store.accounts.UpdateOne(ctx, bson.M{"_id": t.account.ID}, bson.M{"$set": bson.M{"balance": v}})
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
