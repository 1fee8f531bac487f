package services

import (
	"fmt"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
)

// UserByTelegramID loads a bot user with settings and router accounts
func UserByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	err := database.DB.Preload("Settings").Preload("Accounts").
		Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RegisterUser creates a pending user from the bot registration flow
// and notifies the admin chat. Re-registering while a request is still
// pending is rejected.
func RegisterUser(telegramID int64, telegramUsername, fullName string) (*models.User, error) {
	if existing, err := UserByTelegramID(telegramID); err == nil {
		var pending int64
		database.DB.Model(&models.RegistrationRequest{}).
			Where("user_id = ? AND status = ?", existing.ID, models.RegistrationPending).
			Count(&pending)
		if pending > 0 {
			return existing, fmt.Errorf("registration already pending")
		}

		// Rejected or deactivated users may apply again
		database.DB.Model(existing).Updates(map[string]interface{}{
			"full_name": fullName,
			"status":    models.UserStatusPending,
		})
		request := models.RegistrationRequest{UserID: existing.ID}
		if err := database.DB.Create(&request).Error; err != nil {
			return nil, err
		}
		existing.FullName = fullName
		notify.AdminNewRegistration(existing)
		return existing, nil
	}

	user := models.User{
		TelegramID:       telegramID,
		TelegramUsername: telegramUsername,
		FullName:         fullName,
		Status:           models.UserStatusPending,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	database.DB.Create(&models.UserSetting{UserID: user.ID})

	request := models.RegistrationRequest{UserID: user.ID}
	if err := database.DB.Create(&request).Error; err != nil {
		return nil, err
	}

	notify.AdminNewRegistration(&user)
	return &user, nil
}
