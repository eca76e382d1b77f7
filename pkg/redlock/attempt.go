package redlock

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// Attempt - 单次法定多数投票的完整记录
// =============================================================================

// Attempt 记录一次跨全部节点的投票结果。
//
// 每轮重试产生一条记录；最终失败时全部记录随 *ExecutionError 返回。
// 节点以其在构造 Redlock 时客户端列表中的下标标识。
type Attempt struct {
	// Membership 参与投票的节点总数 N。
	Membership int

	// Quorum 法定多数阈值，floor(N/2)+1。
	Quorum int

	// VotesFor 投赞成票的节点下标，升序。
	VotesFor []int

	// VotesAgainst 投反对票的节点下标到反对原因的映射。
	// 原因为 ErrResourceLocked（资源被占）、ErrNotHeld（token 不在该节点）
	// 或底层客户端的传输错误原文。
	VotesAgainst map[int]error

	// Validity 本次尝试计算出的剩余有效期（ttl - elapsed - drift）。
	// 达到法定多数但 Validity <= 0 的尝试同样判定失败。
	Validity time.Duration
}

// Succeeded 报告本次尝试是否同时满足法定多数与正有效期。
func (a *Attempt) Succeeded() bool {
	return len(a.VotesFor) >= a.Quorum && a.Validity > 0
}

// String 返回适合日志输出的摘要。
func (a *Attempt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "votes %d/%d (quorum %d, validity %s)",
		len(a.VotesFor), a.Membership, a.Quorum, a.Validity)
	if len(a.VotesAgainst) > 0 {
		nodes := make([]int, 0, len(a.VotesAgainst))
		for id := range a.VotesAgainst {
			nodes = append(nodes, id)
		}
		sort.Ints(nodes)
		b.WriteString("; against:")
		for _, id := range nodes {
			fmt.Fprintf(&b, " node[%d]=%v", id, a.VotesAgainst[id])
		}
	}
	return b.String()
}
