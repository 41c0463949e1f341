package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

func GenerateTicketID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("tkt_%d_%06d", timestamp, randomNum.Int64())
}

func GenerateBookingID() string {
	return "bkg_" + uuid.NewString()
}

func GeneratePaymentID() string {
	return "pay_" + uuid.NewString()
}
