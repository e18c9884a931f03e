package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

// latestPaymentQuery sorts by expires_at descending. Missing values sort
// lowest, which puts buy payments after any rental.
func latestPaymentQuery(accountID, courseID string) (bson.M, *options.FindOneOptions) {
	filter := bson.M{"account_id": accountID, "course_id": courseID, "type": string(domain.TransactionPayment)}
	opts := options.FindOne().SetSort(bson.D{{Key: "expires_at", Value: -1}, {Key: "created_at", Value: -1}})
	return filter, opts
}

func (s *Store) LatestPayment(ctx context.Context, accountID, courseID string) (*domain.Transaction, error) {
	filter, opts := latestPaymentQuery(accountID, courseID)

	var doc transactionDoc
	err := s.transactions.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest payment: %w", err)
	}
	return doc.toDomain()
}

// listFilter ANDs every filter set on f. courseID is the resolved id of
// f.CourseCode, empty when no course filter applies.
func listFilter(f ports.TransactionFilter, courseID string) bson.M {
	filter := bson.M{"account_id": f.AccountID}
	if f.Type != nil {
		filter["type"] = string(*f.Type)
	}
	if courseID != "" {
		filter["course_id"] = courseID
	}
	if f.SkipExpired {
		filter["$or"] = bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": f.Now}},
		}
	}
	return filter
}

func (s *Store) List(ctx context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	var courseID string
	if f.CourseCode != "" {
		var c courseDoc
		err := s.courses.FindOne(ctx, bson.M{"code": f.CourseCode}).Decode(&c)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []*domain.Transaction{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		courseID = c.ID
	}

	cur, err := s.transactions.Find(ctx, listFilter(f, courseID), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]*domain.Transaction, 0, len(docs))
	courseIDs := make([]string, 0)
	for i := range docs {
		t, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		if t.CourseID != "" {
			courseIDs = append(courseIDs, t.CourseID)
		}
		out = append(out, t)
	}

	codes, err := s.courseCodes(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range out {
		t.CourseCode = codes[t.CourseID]
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var doc transactionDoc
	err := s.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	t, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	if t.CourseID != "" {
		codes, err := s.courseCodes(ctx, []string{t.CourseID})
		if err != nil {
			return nil, err
		}
		t.CourseCode = codes[t.CourseID]
	}
	return t, nil
}

func (s *Store) courseCodes(ctx context.Context, ids []string) (map[string]string, error) {
	codes := make(map[string]string)
	if len(ids) == 0 {
		return codes, nil
	}
	cur, err := s.courses.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"code": 1}))
	if err != nil {
		return nil, fmt.Errorf("course codes: %w", err)
	}
	var docs []courseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode course codes: %w", err)
	}
	for _, d := range docs {
		codes[d.ID] = d.Code
	}
	return codes, nil
}

type expiringRentalRow struct {
	AccountID string    `bson:"account_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	Account   []struct {
		Email string `bson:"email"`
	} `bson:"account"`
	Course []struct {
		Code  string `bson:"code"`
		Title string `bson:"title"`
	} `bson:"course"`
}

func (s *Store) ExpiringRentals(ctx context.Context, from, to time.Time) ([]domain.ExpiringRental, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"type":       string(domain.TransactionPayment),
			"expires_at": bson.M{"$gt": from, "$lte": to},
		}}},
		{{Key: "$sort", Value: bson.M{"expires_at": 1}}},
		{{Key: "$lookup", Value: bson.M{"from": collectionAccounts, "localField": "account_id", "foreignField": "_id", "as": "account"}}},
		{{Key: "$lookup", Value: bson.M{"from": collectionCourses, "localField": "course_id", "foreignField": "_id", "as": "course"}}},
	}

	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("expiring rentals: %w", err)
	}
	var rows []expiringRentalRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode rentals: %w", err)
	}

	out := make([]domain.ExpiringRental, 0, len(rows))
	for _, r := range rows {
		rental := domain.ExpiringRental{AccountID: r.AccountID, ExpiresAt: r.ExpiresAt.UTC()}
		if len(r.Account) > 0 {
			rental.AccountEmail = r.Account[0].Email
		}
		if len(r.Course) > 0 {
			rental.CourseCode, rental.CourseTitle = r.Course[0].Code, r.Course[0].Title
		}
		out = append(out, rental)
	}
	return out, nil
}

type reportRow struct {
	Count  int64                `bson:"count"`
	Total  primitive.Decimal128 `bson:"total"`
	Course struct {
		Code  string `bson:"code"`
		Title string `bson:"title"`
		Type  string `bson:"type"`
	} `bson:"course"`
}

func (s *Store) CourseReport(ctx context.Context, from, to time.Time) ([]domain.CourseReportLine, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"type":       string(domain.TransactionPayment),
			"created_at": bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$course_id",
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$lookup", Value: bson.M{"from": collectionCourses, "localField": "_id", "foreignField": "_id", "as": "course"}}},
		{{Key: "$unwind", Value: "$course"}},
		{{Key: "$match", Value: bson.M{"course.type": bson.M{"$in": bson.A{string(domain.CourseRent), string(domain.CourseBuy)}}}}},
		{{Key: "$sort", Value: bson.M{"course.code": 1}}},
	}

	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("course report: %w", err)
	}
	var rows []reportRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	out := make([]domain.CourseReportLine, 0, len(rows))
	for _, r := range rows {
		total, err := fromDecimal128(r.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CourseReportLine{
			CourseCode:  r.Course.Code,
			CourseTitle: r.Course.Title,
			CourseType:  domain.CourseType(r.Course.Type),
			Count:       r.Count,
			Total:       total,
		})
	}
	return out, nil
}
