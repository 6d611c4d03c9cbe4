package main

import (
	"context"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoSellerUsername = "dojo_supply"
	demoSellerPassword = "dojo_supply_pw"
)

// seedDemoData populates an empty development database with one approved
// seller and a few products.
func seedDemoData(ctx context.Context, store repositories.Store, logger *zap.Logger) error {
	existing, err := store.Products().GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	return store.Transaction(ctx, func(tx repositories.Store) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoSellerPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		user := &models.User{
			Username: demoSellerUsername,
			Email:    "supply@dojo.example",
			Password: string(hash),
			Role:     models.RoleSeller,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		rate := decimal.RequireFromString("0.08")
		seller := &models.Seller{
			UserID:         user.ID,
			StoreName:      "Dojo Supply Co.",
			Description:    "Uniforms and training gear",
			CommissionRate: &rate,
			IsApproved:     true,
		}
		if err := tx.Sellers().Create(ctx, seller); err != nil {
			return err
		}

		products := []models.Product{
			{Name: "Karate Gi", Description: "Heavyweight canvas uniform", Price: decimal.RequireFromString("49.99"), Stock: 25},
			{Name: "Black Belt", Description: "Embroidered cotton belt", Price: decimal.RequireFromString("19.50"), Stock: 40},
			{Name: "Sparring Gloves", Description: "Foam padded, pair", Price: decimal.RequireFromString("34.00"), Stock: 15},
		}
		for i := range products {
			products[i].SellerID = seller.ID
			if err := tx.Products().Create(ctx, &products[i]); err != nil {
				return err
			}
			logger.Info("seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
		}
		return nil
	})
}
