// Package commandcache provides the in-memory correlation store mapping a
// trigger message identifier to the bot response it produced. The store is
// capacity-bounded with oldest-snowflake-first eviction and age-bounded by a
// background sweep; it is intentionally lossy across restarts.
package commandcache
