package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/delivery"
)

func TestDeliveryRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Delivery Repository Suite")
}

// DeliverySQLite drops the now() column defaults for SQLite compatibility.
type DeliverySQLite struct {
	ID          int64      `gorm:"primaryKey"`
	QuoteID     int64      `gorm:"column:quote_id;not null;index"`
	Status      string     `gorm:"column:status;default:dispatched"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (DeliverySQLite) TableName() string {
	return "deliveries"
}

type ConfirmationSQLite struct {
	ID          int64      `gorm:"primaryKey"`
	DeliveryID  int64      `gorm:"column:delivery_id;not null;index"`
	QuoteID     int64      `gorm:"column:quote_id;not null;index"`
	Code        string     `gorm:"column:code;not null;uniqueIndex"`
	ExpiresAt   time.Time  `gorm:"column:expires_at;not null"`
	IsUsed      bool       `gorm:"column:is_used;default:false"`
	ConfirmedBy *int64     `gorm:"column:confirmed_by"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (ConfirmationSQLite) TableName() string {
	return "delivery_confirmations"
}

var _ = ginkgo.Describe("DeliveryRepository", func() {
	var (
		db   *gorm.DB
		repo *DeliveryRepository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&DeliverySQLite{}, &ConfirmationSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewDeliveryRepository(db)
	})

	ginkgo.Describe("CreateDelivery", func() {
		ginkgo.It("should insert the delivery and set its ID", func() {
			d := &delivery.Delivery{
				QuoteID: 10,
				Status:  delivery.StatusDispatched,
			}

			err := repo.CreateDelivery(d)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(d.ID).To(gomega.BeNumerically(">", 0))
		})
	})

	ginkgo.Describe("CreateConfirmation", func() {
		ginkgo.It("should reject a duplicate code", func() {
			first := &delivery.Confirmation{
				DeliveryID: 1,
				QuoteID:    10,
				Code:       "ABCD2345",
				ExpiresAt:  time.Now().Add(24 * time.Hour),
			}
			second := &delivery.Confirmation{
				DeliveryID: 2,
				QuoteID:    11,
				Code:       "ABCD2345",
				ExpiresAt:  time.Now().Add(24 * time.Hour),
			}

			gomega.Expect(repo.CreateConfirmation(first)).To(gomega.Succeed())
			gomega.Expect(repo.CreateConfirmation(second)).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetConfirmationByCode", func() {
		ginkgo.BeforeEach(func() {
			conf := &delivery.Confirmation{
				DeliveryID: 1,
				QuoteID:    10,
				Code:       "ABCD2345",
				ExpiresAt:  time.Now().Add(24 * time.Hour),
			}
			gomega.Expect(repo.CreateConfirmation(conf)).To(gomega.Succeed())
		})

		ginkgo.Context("when the code exists", func() {
			ginkgo.It("should return the confirmation", func() {
				conf, err := repo.GetConfirmationByCode("ABCD2345")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(conf.QuoteID).To(gomega.Equal(int64(10)))
				gomega.Expect(conf.IsUsed).To(gomega.BeFalse())
			})
		})

		ginkgo.Context("when the code does not exist", func() {
			ginkgo.It("should return an error", func() {
				conf, err := repo.GetConfirmationByCode("ZZZZ9999")

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(conf).To(gomega.BeNil())
			})
		})
	})

	ginkgo.Describe("ConsumeConfirmation", func() {
		ginkgo.BeforeEach(func() {
			conf := &delivery.Confirmation{
				DeliveryID: 1,
				QuoteID:    10,
				Code:       "ABCD2345",
				ExpiresAt:  time.Now().Add(24 * time.Hour),
			}
			gomega.Expect(repo.CreateConfirmation(conf)).To(gomega.Succeed())
		})

		ginkgo.It("should redeem exactly once", func() {
			now := time.Now()

			first, err := repo.ConsumeConfirmation("ABCD2345", 99, now)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(first).To(gomega.BeTrue())

			second, err := repo.ConsumeConfirmation("ABCD2345", 77, now)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(second).To(gomega.BeFalse())

			conf, err := repo.GetConfirmationByCode("ABCD2345")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(conf.IsUsed).To(gomega.BeTrue())
			gomega.Expect(*conf.ConfirmedBy).To(gomega.Equal(int64(99))) // the first winner sticks
		})

		ginkgo.It("should report false for an unknown code", func() {
			consumed, err := repo.ConsumeConfirmation("ZZZZ9999", 99, time.Now())

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(consumed).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("MarkDelivered", func() {
		var d *delivery.Delivery

		ginkgo.BeforeEach(func() {
			d = &delivery.Delivery{QuoteID: 10, Status: delivery.StatusDispatched}
			gomega.Expect(repo.CreateDelivery(d)).To(gomega.Succeed())
		})

		ginkgo.It("should set status and delivered_at", func() {
			now := time.Now().UTC()

			err := repo.MarkDelivered(d.ID, now)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			var got DeliverySQLite
			gomega.Expect(db.First(&got, d.ID).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.Status).To(gomega.Equal(string(delivery.StatusDelivered)))
			gomega.Expect(got.DeliveredAt).ToNot(gomega.BeNil())
		})
	})
})
