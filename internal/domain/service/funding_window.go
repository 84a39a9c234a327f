package service

import (
	"fmt"
	"slices"
	"time"
)

// 缺少下次结算时间时默认收取的 UTC 整点，UTC-5 下为 19:00 和 11:00
var canonicalSettleUTC = []int{0, 16}

// DefaultTargetHours 参考时区内关注的结算小时
var DefaultTargetHours = []int{7, 11, 15, 19, 23}

// ReferenceZone 固定偏移时区，不受夏令时影响
func ReferenceZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// CanonicalHours 默认结算整点换算到 loc 后的小时，升序
func CanonicalHours(loc *time.Location) []int {
	_, offset := time.Date(2000, 1, 1, 0, 0, 0, 0, loc).Zone()
	shift := offset / 3600
	out := make([]int, 0, len(canonicalSettleUTC))
	for _, h := range canonicalSettleUTC {
		out = append(out, ((h+shift)%24+24)%24)
	}
	slices.Sort(out)
	return out
}

// ChargesAt 判断该报价是否在 targetHour 结算。
// 没有下次结算时间时只在 CanonicalHours 结算。
func ChargesAt(nextFundingMs int64, targetHour int, loc *time.Location) bool {
	if nextFundingMs <= 0 {
		return slices.Contains(CanonicalHours(loc), targetHour)
	}
	return time.UnixMilli(nextFundingMs).In(loc).Hour() == targetHour
}

// EffectiveRate 在 targetHour 实际收取的费率，不结算则为 0
func EffectiveRate(rate float64, nextFundingMs int64, targetHour int, loc *time.Location) float64 {
	if ChargesAt(nextFundingMs, targetHour, loc) {
		return rate
	}
	return 0
}

// NearestTargetLabel 当前时间对应的目标结算小时标签 (HH:00)。
// 落在 [t-1, t] 窗口内取 t，否则取距离最近的 t。
func NearestTargetLabel(now time.Time, targets []int) string {
	if len(targets) == 0 {
		return fmt.Sprintf("%02d:00", now.Hour())
	}
	hour := now.Hour()
	for _, t := range targets {
		if t-1 <= hour && hour <= t {
			return fmt.Sprintf("%02d:00", t)
		}
	}
	best := targets[0]
	for _, t := range targets[1:] {
		if absInt(t-hour) < absInt(best-hour) {
			best = t
		}
	}
	return fmt.Sprintf("%02d:00", best)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
