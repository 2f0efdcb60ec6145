package api

import (
	"context"
	"time"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Driver", func() {
	var (
		mockCtrl      *gomock.Controller
		mockTransport *MockTransport
		driver        *driverImpl
		slept         []time.Duration
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockTransport = NewMockTransport(mockCtrl)

		slept = nil
		driver = DriverBuilder{}.
			WithTransport(mockTransport).
			WithFrameGap(5 * time.Millisecond).
			Build("Driver").(*driverImpl)
		driver.sleep = func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should send frames in order", func() {
		frames := []string{"PBJ0,3,0,99;", "PBJ1,5,0,30;"}

		gomock.InOrder(
			mockTransport.EXPECT().Send("PBJ0,3,0,99;").Return(nil),
			mockTransport.EXPECT().Send("PBJ1,5,0,30;").Return(nil),
		)

		err := driver.Program(context.Background(), frames)

		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Sent()).To(Equal(2))
		Expect(slept).To(Equal([]time.Duration{5 * time.Millisecond}))
	})

	It("should do nothing for an empty program", func() {
		err := driver.Program(context.Background(), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Sent()).To(Equal(0))
	})

	It("should stop at the first transport error", func() {
		frames := []string{"PBJ0,3,0,99;", "PBJ1,5,0,30;", "PBJ2,5,0,30;"}
		linkDown := errors.New("link down")

		gomock.InOrder(
			mockTransport.EXPECT().Send("PBJ0,3,0,99;").Return(nil),
			mockTransport.EXPECT().Send("PBJ1,5,0,30;").Return(linkDown),
		)

		err := driver.Program(context.Background(), frames)

		Expect(errors.Is(err, linkDown)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("frame 1"))
		Expect(driver.Sent()).To(Equal(1))
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())

		mockTransport.EXPECT().Send("PBJ0,3,0,99;").DoAndReturn(func(string) error {
			cancel()
			return nil
		})

		err := driver.Program(ctx, []string{"PBJ0,3,0,99;", "PBJ1,5,0,30;"})

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(driver.Sent()).To(Equal(1))
	})

	It("should close the transport", func() {
		mockTransport.EXPECT().Close().Return(nil)

		Expect(driver.Close()).To(Succeed())
	})

	It("should refuse to build without a transport", func() {
		Expect(func() { DriverBuilder{}.Build("Driver") }).To(Panic())
	})
})
