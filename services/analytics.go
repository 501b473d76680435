package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wemarket/qr-order/models"
	"gorm.io/gorm"
)

type SalesPoint struct {
	Label  string `json:"label"`
	Orders int64  `json:"orders"`
	Sales  int64  `json:"sales"`
}

type BestDay struct {
	Date  string `json:"date"`
	Sales int64  `json:"sales"`
}

type SalesSummary struct {
	StatsSummary
	BestDay *BestDay `json:"best_day"`
}

type SalesReport struct {
	Period  string       `json:"period"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
	Data    []SalesPoint `json:"data"`
	Summary SalesSummary `json:"summary"`
}

type PeriodTotals struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Orders int64  `json:"orders"`
	Sales  int64  `json:"sales"`
}

type Growth struct {
	Orders float64 `json:"orders"`
	Sales  float64 `json:"sales"`
}

type ComparisonReport struct {
	Period   string       `json:"period"`
	Current  PeriodTotals `json:"current"`
	Previous PeriodTotals `json:"previous"`
	Growth   Growth       `json:"growth"`
}

type RankedProduct struct {
	Rank          int     `json:"rank"`
	ProductID     uint    `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalSales    int64   `json:"total_sales"`
	OrderCount    int64   `json:"order_count"`
	QuantityShare float64 `json:"quantity_share"`
	SalesShare    float64 `json:"sales_share"`
}

type ProductReport struct {
	Products []RankedProduct `json:"products"`
	Totals   struct {
		Quantity int64 `json:"quantity"`
		Sales    int64 `json:"sales"`
	} `json:"totals"`
}

type StaffPerformance struct {
	Rank            int    `json:"rank"`
	UserID          uint   `json:"id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	RoleLabel       string `json:"role_label"`
	OrdersProcessed int64  `json:"orders_processed"`
	TotalSales      int64  `json:"total_sales"`
	CompletedOrders int64  `json:"completed_orders"`
}

type StaffReport struct {
	Start string             `json:"start"`
	End   string             `json:"end"`
	Staff []StaffPerformance `json:"staff"`
}

type HourPoint struct {
	Hour   int    `json:"hour"`
	Label  string `json:"label"`
	Orders int64  `json:"orders"`
	Sales  int64  `json:"sales"`
}

type HourlyReport struct {
	Data []HourPoint `json:"data"`
	Peak HourPoint   `json:"peak"`
}

// AnalyticsService aggregates store history for the owner dashboard.
type AnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db, now: time.Now}
}

// window resolves [start, end] with a default lookback in days ending today.
func (s *AnalyticsService) window(start, end string, lookbackDays int) (string, string, error) {
	today := s.now()
	if end == "" {
		end = today.Format(models.BusinessDateLayout)
	}
	if start == "" {
		start = today.AddDate(0, 0, -lookbackDays).Format(models.BusinessDateLayout)
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse(models.BusinessDateLayout, d); err != nil {
			return "", "", validationf("dates must be YYYY-MM-DD")
		}
	}
	if start > end {
		return "", "", validationf("start must not be after end")
	}
	return start, end, nil
}

func (s *AnalyticsService) orders(ctx context.Context, storeID uint, start, end string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("id", "business_date", "created_at", "status", "total_amount", "payment_status").
		Where("store_id = ? AND business_date BETWEEN ? AND ?", storeID, start, end).
		Order("business_date, id").
		Find(&orders).Error
	return orders, err
}

func paidAmount(o models.Order) int64 {
	if o.PaymentStatus == models.PaymentPaid {
		return o.TotalAmount
	}
	return 0
}

// weekLabel mirrors strftime("%Y-W%W"): weeks start on Monday and days before
// the first Monday of the year fall in week 00.
func weekLabel(t time.Time) string {
	mondayBased := (int(t.Weekday()) + 6) % 7
	week := (t.YearDay() - 1 + 7 - mondayBased) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

func periodLabel(period, businessDate string) string {
	t, err := time.Parse(models.BusinessDateLayout, businessDate)
	if err != nil {
		return businessDate
	}
	switch period {
	case "weekly":
		return weekLabel(t)
	case "monthly":
		return t.Format("2006-01")
	default:
		return businessDate
	}
}

// Sales groups orders by day, week or month and summarises the window.
func (s *AnalyticsService) Sales(ctx context.Context, storeID uint, period, start, end string) (*SalesReport, error) {
	switch period {
	case "":
		period = "daily"
	case "daily", "weekly", "monthly":
	default:
		return nil, validationf("period must be daily, weekly or monthly")
	}
	start, end, err := s.window(start, end, 30)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{Period: period, Start: start, End: end, Data: []SalesPoint{}}
	index := map[string]int{}
	perDay := map[string]int64{}
	var paidCount, paidSum int64
	for _, o := range orders {
		label := periodLabel(period, o.BusinessDate)
		i, ok := index[label]
		if !ok {
			i = len(report.Data)
			index[label] = i
			report.Data = append(report.Data, SalesPoint{Label: label})
		}
		report.Data[i].Orders++
		report.Data[i].Sales += paidAmount(o)

		report.Summary.TotalOrders++
		report.Summary.TotalSales += paidAmount(o)
		if o.PaymentStatus == models.PaymentPaid {
			paidCount++
			paidSum += o.TotalAmount
		}
		switch o.Status {
		case models.OrderCompleted:
			report.Summary.CompletedOrders++
		case models.OrderCancelled:
			report.Summary.CancelledOrders++
		}
		perDay[o.BusinessDate] += paidAmount(o)
	}
	sort.Slice(report.Data, func(a, b int) bool { return report.Data[a].Label < report.Data[b].Label })
	if paidCount > 0 {
		report.Summary.AvgOrderAmount = int64(math.Round(float64(paidSum) / float64(paidCount)))
	}

	for date, sales := range perDay {
		if report.Summary.BestDay == nil || sales > report.Summary.BestDay.Sales ||
			(sales == report.Summary.BestDay.Sales && date < report.Summary.BestDay.Date) {
			report.Summary.BestDay = &BestDay{Date: date, Sales: sales}
		}
	}
	return report, nil
}

func growth(curr, prev int64) float64 {
	if prev == 0 {
		if curr > 0 {
			return 100
		}
		return 0
	}
	return math.Round(float64(curr-prev)/float64(prev)*1000) / 10
}

func (s *AnalyticsService) totals(ctx context.Context, storeID uint, start, end string) (PeriodTotals, error) {
	out := PeriodTotals{Start: start, End: end}
	orders, err := s.orders(ctx, storeID, start, end)
	if err != nil {
		return out, err
	}
	for _, o := range orders {
		out.Orders++
		out.Sales += paidAmount(o)
	}
	return out, nil
}

// Comparison contrasts this week (month) so far with the whole previous one.
func (s *AnalyticsService) Comparison(ctx context.Context, storeID uint, period string) (*ComparisonReport, error) {
	today := s.now()
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	var curStart, prevStart, prevEnd time.Time
	switch period {
	case "monthly":
		curStart = time.Date(y, m, 1, 0, 0, 0, 0, today.Location())
		prevStart = curStart.AddDate(0, -1, 0)
		prevEnd = curStart.AddDate(0, 0, -1)
	case "", "weekly":
		period = "weekly"
		offset := (int(day.Weekday()) + 6) % 7
		curStart = day.AddDate(0, 0, -offset)
		prevStart = curStart.AddDate(0, 0, -7)
		prevEnd = curStart.AddDate(0, 0, -1)
	default:
		return nil, validationf("period must be weekly or monthly")
	}

	layout := models.BusinessDateLayout
	current, err := s.totals(ctx, storeID, curStart.Format(layout), day.Format(layout))
	if err != nil {
		return nil, err
	}
	previous, err := s.totals(ctx, storeID, prevStart.Format(layout), prevEnd.Format(layout))
	if err != nil {
		return nil, err
	}
	return &ComparisonReport{
		Period:   period,
		Current:  current,
		Previous: previous,
		Growth: Growth{
			Orders: growth(current.Orders, previous.Orders),
			Sales:  growth(current.Sales, previous.Sales),
		},
	}, nil
}

func share(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// Products ranks products by quantity (or sales) with their share of the
// window's totals.
func (s *AnalyticsService) Products(ctx context.Context, storeID uint, start, end string, limit int, sortBy string) (*ProductReport, error) {
	start, end, err := s.window(start, end, 30)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	orderBy := "total_quantity DESC"
	if sortBy == "sales" {
		orderBy = "total_sales DESC"
	}

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Table("order_items").
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.store_id = ? AND orders.business_date BETWEEN ? AND ?", storeID, start, end)
	}

	report := &ProductReport{Products: []RankedProduct{}}
	if err := base().
		Select("order_items.product_id, order_items.product_name, " +
			"SUM(order_items.quantity) AS total_quantity, SUM(order_items.subtotal) AS total_sales, " +
			"COUNT(DISTINCT order_items.order_id) AS order_count").
		Group("order_items.product_id, order_items.product_name").
		Order(orderBy).
		Limit(limit).
		Scan(&report.Products).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("COALESCE(SUM(order_items.quantity), 0), COALESCE(SUM(order_items.subtotal), 0)").
		Row().Scan(&report.Totals.Quantity, &report.Totals.Sales); err != nil {
		return nil, err
	}

	for i := range report.Products {
		p := &report.Products[i]
		p.Rank = i + 1
		p.QuantityShare = share(p.TotalQuantity, report.Totals.Quantity)
		p.SalesShare = share(p.TotalSales, report.Totals.Sales)
	}
	return report, nil
}

// Staff ranks users by the orders they moved forward, using the status log.
// An order counts once per user however many steps that user logged for it.
func (s *AnalyticsService) Staff(ctx context.Context, storeID uint, start, end string) (*StaffReport, error) {
	start, end, err := s.window(start, end, 30)
	if err != nil {
		return nil, err
	}
	from, _ := time.ParseInLocation(models.BusinessDateLayout, start, time.Local)
	to, _ := time.ParseInLocation(models.BusinessDateLayout, end, time.Local)
	to = to.AddDate(0, 0, 1)

	var rows []struct {
		UserID        uint
		Name          string
		Role          *string
		OrderID       uint
		NewStatus     string
		PaymentStatus string
		TotalAmount   int64
	}
	err = s.db.WithContext(ctx).Table("order_status_logs").
		Select("users.id AS user_id, users.name AS name, store_staff.role AS role, "+
			"order_status_logs.order_id, order_status_logs.new_status, orders.payment_status, orders.total_amount").
		Joins("JOIN users ON users.id = order_status_logs.user_id").
		Joins("JOIN orders ON orders.id = order_status_logs.order_id").
		Joins("LEFT JOIN store_staff ON store_staff.user_id = users.id AND store_staff.store_id = orders.store_id").
		Where("orders.store_id = ?", storeID).
		Where("order_status_logs.new_status IN ?", []string{
			models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderCompleted,
		}).
		Where("order_status_logs.changed_at >= ? AND order_status_logs.changed_at < ?", from, to).
		Order("order_status_logs.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type tally struct {
		perf      StaffPerformance
		orders    map[uint]bool
		completed map[uint]bool
	}
	byUser := map[uint]*tally{}
	var order []uint
	for _, r := range rows {
		t, ok := byUser[r.UserID]
		if !ok {
			role := models.RoleOwner
			if r.Role != nil && *r.Role != "" {
				role = *r.Role
			}
			t = &tally{
				perf:      StaffPerformance{UserID: r.UserID, Name: r.Name, Role: role, RoleLabel: RoleLabels[role]},
				orders:    map[uint]bool{},
				completed: map[uint]bool{},
			}
			byUser[r.UserID] = t
			order = append(order, r.UserID)
		}
		if !t.orders[r.OrderID] {
			t.orders[r.OrderID] = true
			t.perf.OrdersProcessed++
			if r.PaymentStatus == models.PaymentPaid {
				t.perf.TotalSales += r.TotalAmount
			}
		}
		if r.NewStatus == models.OrderCompleted && !t.completed[r.OrderID] {
			t.completed[r.OrderID] = true
			t.perf.CompletedOrders++
		}
	}

	report := &StaffReport{Start: start, End: end, Staff: make([]StaffPerformance, 0, len(order))}
	for _, id := range order {
		report.Staff = append(report.Staff, byUser[id].perf)
	}
	sort.SliceStable(report.Staff, func(a, b int) bool {
		return report.Staff[a].OrdersProcessed > report.Staff[b].OrdersProcessed
	})
	for i := range report.Staff {
		report.Staff[i].Rank = i + 1
	}
	return report, nil
}

// Hourly spreads the window's orders over 24 hours and picks the busiest by
// sales.
func (s *AnalyticsService) Hourly(ctx context.Context, storeID uint, start, end string) (*HourlyReport, error) {
	start, end, err := s.window(start, end, 7)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	report := &HourlyReport{Data: make([]HourPoint, 24)}
	for h := range report.Data {
		report.Data[h] = HourPoint{Hour: h, Label: fmt.Sprintf("%02d:00", h)}
	}
	for _, o := range orders {
		h := o.CreatedAt.Local().Hour()
		report.Data[h].Orders++
		report.Data[h].Sales += paidAmount(o)
	}
	report.Peak = report.Data[0]
	for _, p := range report.Data[1:] {
		if p.Sales > report.Peak.Sales {
			report.Peak = p
		}
	}
	return report, nil
}
