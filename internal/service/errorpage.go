package service

import "scooter/internal/domain"

// Error page images.
const (
	imageLowBattery        = "low_battery.png"
	imageBadWeather        = "bad_weather.png"
	imageInsufficientFunds = "insufficient_funds.png"
	imageError             = "error.png"
)

// DefaultErrorReason is used when the backend rejects a request without a reason code.
const DefaultErrorReason = "rental-error"

var errorPages = map[string]domain.ErrorDescription{
	"low-battery": {
		Title:   "Low Battery",
		Message: "The e-scooter has a low battery. Please change to another e-scooter.",
		Image:   imageLowBattery,
	},
	"bad-weather": {
		Title:   "Bad Weather",
		Message: "The weather is not suitable for driving. Please try again later.",
		Image:   imageBadWeather,
	},
	"insufficient-funds": {
		Title:   "Insufficient Funds",
		Message: "You do not have enough funds to rent this e-scooter.",
		Image:   imageInsufficientFunds,
	},
	"rental-error": {
		Title:   "Rental Error",
		Message: "There was an error while renting the e-scooter. Please try again.",
		Image:   imageLowBattery,
	},
	"user-occupied": {
		Title:   "User Occupied",
		Message: "You are already renting an e-scooter. Please return it before renting another one.",
		Image:   imageError,
	},
	"scooter-occupied": {
		Title:   "Scooter Occupied",
		Message: "The e-scooter is currently occupied. Please try another e-scooter.",
		Image:   imageError,
	},
	"scooter-inoperable": {
		Title:   "Scooter Inoperable",
		Message: "The e-scooter is inoperable. Please try another e-scooter.",
		Image:   imageError,
	},
	"user-not-found": {
		Title:   "User not Found",
		Message: "The user was not found. Please try again.",
		Image:   imageError,
	},
	"scooter-not-found": {
		Title:   "Scooter not Found",
		Message: "The e-scooter was not found. Please try again.",
		Image:   imageError,
	},
	"transaction-error": {
		Title:   "Transaction Error",
		Message: "There was an error with the transaction. Please try again.",
		Image:   imageError,
	},
}

// DescribeError returns the error page content for a backend reason code.
// Unknown codes get a generic description.
func DescribeError(errorType string) domain.ErrorDescription {
	desc, ok := errorPages[errorType]
	if !ok {
		desc = domain.ErrorDescription{
			Title:   "Unknown Error",
			Message: "An unknown error occurred. Please try again.",
			Image:   imageError,
		}
	}
	desc.Type = errorType
	return desc
}
