package pantry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// ==================== 新增 ====================

func (d *Dispatcher) handleAddItem(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters.Items
	if len(params) == 0 {
		return guidance("What item would you like to add?", "add milk to the fridge", "add 2 lbs of chicken to the freezer"), nil
	}

	now := d.now()
	added := make([]Item, 0, len(params))
	for _, p := range params {
		locationName := p.Location
		if locationName == "" {
			locationName = d.defaultLocation
		}
		location, err := d.store.EnsureLocation(ctx, userID, locationName)
		if err != nil {
			return ActionResult{}, fmt.Errorf("ensure location %q: %w", locationName, err)
		}

		quantity := 1.0
		if p.Quantity != nil {
			quantity = *p.Quantity
		}
		category := p.Category
		if category == "" {
			category = command.InferCategory(p.Name)
		}

		expiration := EstimateExpiration(category, location.Name, now)
		if p.ExpirationDate != "" {
			if parsed, err := time.ParseInLocation("2006-01-02", p.ExpirationDate, now.Location()); err == nil {
				expiration = parsed
			}
		}

		item := Item{
			UserID:         userID,
			Name:           p.Name,
			Quantity:       quantity,
			Unit:           p.Unit,
			Category:       category,
			LocationID:     location.ID,
			LocationName:   location.Name,
			ExpirationDate: &expiration,
		}
		if err := d.store.CreateItem(ctx, &item); err != nil {
			return ActionResult{}, fmt.Errorf("create item %q: %w", p.Name, err)
		}
		added = append(added, item)
	}

	parts := make([]string, len(added))
	for i, item := range added {
		parts[i] = fmt.Sprintf("%s to %s", describeAmount(item.Quantity, item.Unit, item.Name), item.LocationName)
	}

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Added %s.", joinWords(parts)),
		Data:    map[string]interface{}{"items": added},
	}, nil
}

// ==================== 移除 ====================

func (d *Dispatcher) handleRemoveItem(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	names := itemNames(cmd.Parameters)
	if len(names) == 0 {
		return guidance("What item would you like to remove?", "remove the milk", "we ran out of eggs"), nil
	}

	var removed []Item
	var notFound []string
	for _, name := range names {
		item, _, err := d.resolveItem(ctx, userID, name, cmd.Parameters.Location)
		if err != nil {
			return ActionResult{}, err
		}
		if item == nil {
			notFound = append(notFound, name)
			continue
		}
		if err := d.store.DeleteItem(ctx, userID, item.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				notFound = append(notFound, name)
				continue
			}
			return ActionResult{}, fmt.Errorf("delete item %q: %w", item.Name, err)
		}
		removed = append(removed, *item)
	}

	var message strings.Builder
	if len(removed) > 0 {
		removedNames := make([]string, len(removed))
		for i, item := range removed {
			removedNames[i] = item.Name
		}
		fmt.Fprintf(&message, "Removed %s.", joinWords(removedNames))
	}
	if len(notFound) > 0 {
		if message.Len() > 0 {
			message.WriteString(" ")
		}
		fmt.Fprintf(&message, "Could not find %s in your pantry.", joinWords(notFound))
	}

	return ActionResult{
		Success: len(removed) > 0,
		Message: message.String(),
		Data: map[string]interface{}{
			"removed":  removed,
			"notFound": notFound,
		},
	}, nil
}

// ==================== 移動 ====================

func (d *Dispatcher) handleMoveItem(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters
	if params.ItemName == "" {
		return guidance("Which item would you like to move?", "move the chicken to the freezer"), nil
	}
	if params.ToLocation == "" {
		return guidance(
			fmt.Sprintf("Where would you like to move %s? Please name a destination.", params.ItemName),
			fmt.Sprintf("move %s to the freezer", params.ItemName),
			fmt.Sprintf("move %s to the fridge", params.ItemName),
		), nil
	}

	item, _, err := d.resolveItem(ctx, userID, params.ItemName, params.FromLocation)
	if err != nil {
		return ActionResult{}, err
	}
	if item == nil {
		return ActionResult{Success: false, Message: fmt.Sprintf("Could not find %s in your pantry.", params.ItemName)}, nil
	}

	destination, err := d.store.EnsureLocation(ctx, userID, params.ToLocation)
	if err != nil {
		return ActionResult{}, fmt.Errorf("ensure location %q: %w", params.ToLocation, err)
	}
	if item.LocationID == destination.ID {
		return ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s is already in the %s.", item.Name, destination.Name),
			Data:    map[string]interface{}{"item": item},
		}, nil
	}

	if err := d.store.UpdateItemLocation(ctx, userID, item.ID, destination.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ActionResult{Success: false, Message: fmt.Sprintf("Could not find %s in your pantry.", params.ItemName)}, nil
		}
		return ActionResult{}, fmt.Errorf("update item location: %w", err)
	}

	from := item.LocationName
	moved := *item
	moved.LocationID = destination.ID
	moved.LocationName = destination.Name

	message := fmt.Sprintf("Moved %s to the %s.", item.Name, destination.Name)
	if from != "" {
		message = fmt.Sprintf("Moved %s from the %s to the %s.", item.Name, from, destination.Name)
	}
	return ActionResult{
		Success: true,
		Message: message,
		Data:    map[string]interface{}{"item": moved},
	}, nil
}

// ==================== 數量 ====================

func (d *Dispatcher) handleUpdateQuantity(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters
	if params.ItemName == "" || params.Quantity == nil {
		return guidance("Which item should I update, and to what quantity?", "update milk to 2 gallons", "we only have 3 eggs left"), nil
	}
	if *params.Quantity < 0 {
		return guidance("Quantity can't be negative."), nil
	}

	item, _, err := d.resolveItem(ctx, userID, params.ItemName, params.Location)
	if err != nil {
		return ActionResult{}, err
	}
	if item == nil {
		return ActionResult{
			Success:          false,
			Message:          fmt.Sprintf("Could not find %s in your pantry.", params.ItemName),
			SuggestedActions: []string{fmt.Sprintf("add %s %s", formatAmount(*params.Quantity, params.Unit), params.ItemName)},
		}, nil
	}

	unit := params.Unit
	if unit == "" {
		unit = item.Unit
	}
	if err := d.store.UpdateItemQuantity(ctx, userID, item.ID, *params.Quantity, unit); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ActionResult{Success: false, Message: fmt.Sprintf("Could not find %s in your pantry.", params.ItemName)}, nil
		}
		return ActionResult{}, fmt.Errorf("update item quantity: %w", err)
	}

	updated := *item
	updated.Quantity = *params.Quantity
	updated.Unit = unit
	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Updated %s to %s.", item.Name, formatAmount(updated.Quantity, unit)),
		Data:    map[string]interface{}{"item": updated, "previousQuantity": item.Quantity},
	}, nil
}

// ==================== 購物清單 ====================

func (d *Dispatcher) handleAddToGrocery(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters.Items
	if len(params) == 0 {
		return guidance("What would you like to add to your grocery list?", "add eggs and milk to my grocery list"), nil
	}

	groceries := make([]GroceryItem, 0, len(params))
	names := make([]string, 0, len(params))
	for _, p := range params {
		g := GroceryItem{
			UserID:   userID,
			Name:     p.Name,
			Unit:     p.Unit,
			Category: p.Category,
		}
		if p.Quantity != nil {
			g.Quantity = *p.Quantity
		}
		groceries = append(groceries, g)
		names = append(names, p.Name)
	}

	if err := d.store.AddGroceryItems(ctx, userID, groceries); err != nil {
		return ActionResult{}, fmt.Errorf("add grocery items: %w", err)
	}

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Added %s to your grocery list.", joinWords(names)),
		Data:    map[string]interface{}{"items": groceries},
	}, nil
}

// ==================== 查詢 ====================

func (d *Dispatcher) handleCheckAvailability(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	ingredients := cmd.Parameters.Ingredients
	if len(ingredients) == 0 {
		return guidance("Which ingredients would you like me to check?", "do we have eggs and milk?"), nil
	}

	items, err := d.store.ListItems(ctx, userID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list items: %w", err)
	}
	report := CheckAvailability(ingredients, items)

	var parts []string
	var confirm bool
	if len(report.Available) > 0 {
		have := make([]string, len(report.Available))
		for i, m := range report.Available {
			have[i] = m.Ingredient
			if !strings.EqualFold(m.Ingredient, m.Item.Name) {
				have[i] = fmt.Sprintf("%s (%s)", m.Ingredient, m.Item.Name)
			}
			if m.NeedsConfirmation {
				confirm = true
			}
		}
		parts = append(parts, "You have "+joinWords(have)+".")
	}

	var suggestions []string
	if len(report.Missing) > 0 {
		parts = append(parts, "You're missing "+joinWords(report.Missing)+".")
		suggestions = append(suggestions, fmt.Sprintf("add %s to my grocery list", joinWords(report.Missing)))
	}

	return ActionResult{
		Success:              true,
		Message:              strings.Join(parts, " "),
		Data:                 report,
		RequiresConfirmation: confirm,
		SuggestedActions:     suggestions,
	}, nil
}

func (d *Dispatcher) handleFindRecipes(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters
	items, err := d.store.ListItems(ctx, userID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list items: %w", err)
	}
	recipes, err := d.store.ListRecipes(ctx, userID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list recipes: %w", err)
	}

	ranked := RankRecipes(recipes, items, params.Ingredients, params.Recipe)
	if len(ranked) > d.maxRecipes {
		ranked = ranked[:d.maxRecipes]
	}

	if len(ranked) > 0 {
		parts := make([]string, len(ranked))
		for i, r := range ranked {
			parts[i] = fmt.Sprintf("%s (%d%% of ingredients on hand)", r.Recipe.Name, int(r.Coverage*100+0.5))
		}
		return ActionResult{
			Success: true,
			Message: fmt.Sprintf("Found %d recipe%s: %s.", len(ranked), plural(len(ranked)), strings.Join(parts, ", ")),
			Data:    map[string]interface{}{"recipes": ranked},
		}, nil
	}

	noMatch := ActionResult{
		Success:          true,
		Message:          "I couldn't find any recipes that match what you have.",
		Data:             map[string]interface{}{"recipes": ranked},
		SuggestedActions: []string{"what's in the pantry?", "add chicken to the fridge"},
	}

	if d.ideas != nil {
		wanted := params.Ingredients
		if len(wanted) == 0 {
			wanted = pantryNames(items)
		}
		ideas, err := d.ideas.RecipeIdeas(ctx, wanted, params.Recipe)
		if err != nil {
			common.LogWarn("食譜建議失敗", zap.String("user_id", userID), zap.Error(err))
			if wait, ok := common.RetryAfter(err); ok {
				seconds := int(math.Ceil(wait.Seconds()))
				noMatch.Message += fmt.Sprintf(" Recipe ideas are limited right now, try again in %d second%s.", seconds, plural(seconds))
				noMatch.Data = map[string]interface{}{"recipes": ranked, "retryAfter": seconds}
			}
		} else if len(ideas) > 0 {
			names := make([]string, len(ideas))
			for i, idea := range ideas {
				names[i] = idea.Name
			}
			return ActionResult{
				Success: true,
				Message: fmt.Sprintf("No saved recipes match, but you could try %s.", joinWords(names)),
				Data:    map[string]interface{}{"ideas": ideas},
			}, nil
		}
	}

	return noMatch, nil
}

func (d *Dispatcher) handleCheckExpiration(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	params := cmd.Parameters
	items, err := d.store.ListItems(ctx, userID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list items: %w", err)
	}
	today := d.today()

	if params.ItemName != "" {
		match := FindBestMatch(params.ItemName, items)
		if !match.Matched() {
			return ActionResult{Success: false, Message: fmt.Sprintf("Could not find %s in your pantry.", params.ItemName)}, nil
		}
		return ActionResult{
			Success: true,
			Message: describeExpiration(*match.Item, today),
			Data:    map[string]interface{}{"item": match.Item, "status": Status(*match.Item, today, d.expiringSoonDays)},
		}, nil
	}

	if params.Location != "" {
		items = filterByLocation(items, params.Location)
	}

	window := d.expiringSoonDays
	if params.Days > 0 {
		window = params.Days
	}
	report := PartitionByExpiration(items, today, window)

	var parts []string
	if n := len(report.Expired); n > 0 {
		parts = append(parts, fmt.Sprintf("%d item%s expired: %s.", n, pluralHas(n), joinWords(namesOf(report.Expired))))
	}
	if n := len(report.ExpiringSoon); n > 0 {
		parts = append(parts, fmt.Sprintf("%d item%s expiring within %d day%s: %s.", n, pluralVerb(n), window, plural(window), joinWords(namesOf(report.ExpiringSoon))))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Nothing is expiring in the next %d day%s.", window, plural(window)))
	}

	return ActionResult{
		Success: true,
		Message: strings.Join(parts, " "),
		Data:    report,
	}, nil
}

func (d *Dispatcher) handleListItems(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	items, err := d.store.ListItems(ctx, userID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list items: %w", err)
	}

	location := cmd.Parameters.Location
	if location != "" {
		items = filterByLocation(items, location)
		if len(items) == 0 {
			return ActionResult{
				Success: true,
				Message: fmt.Sprintf("The %s is empty.", location),
				Data:    map[string][]Item{},
			}, nil
		}
	}
	if len(items) == 0 {
		return ActionResult{
			Success:          true,
			Message:          "Your pantry is empty.",
			Data:             map[string][]Item{},
			SuggestedActions: []string{"add milk to the fridge"},
		}, nil
	}

	grouped := make(map[string][]Item)
	for _, item := range items {
		name := item.LocationName
		if name == "" {
			name = "Unsorted"
		}
		grouped[name] = append(grouped[name], item)
	}
	locations := make([]string, 0, len(grouped))
	for name := range grouped {
		locations = append(locations, name)
	}
	sort.Strings(locations)

	sections := make([]string, len(locations))
	for i, name := range locations {
		descriptions := make([]string, len(grouped[name]))
		for j, item := range grouped[name] {
			descriptions[j] = describeAmount(item.Quantity, item.Unit, item.Name)
		}
		sections[i] = fmt.Sprintf("%s: %s", name, strings.Join(descriptions, ", "))
	}

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("You have %d item%s. %s.", len(items), plural(len(items)), strings.Join(sections, "; ")),
		Data:    grouped,
	}, nil
}

// ==================== 其他 ====================

func (d *Dispatcher) handleMealPlan(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	return ActionResult{
		Success: false,
		Message: "Meal planning is coming soon! In the meantime, I can help you find recipes or check what's expiring.",
		SuggestedActions: []string{
			"what can I make for dinner?",
			"what's expiring soon?",
			"show me what's in the fridge",
		},
	}, nil
}

func (d *Dispatcher) handleUnknown(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error) {
	return ActionResult{
		Success:          false,
		Message:          "I didn't understand that command. Here are some things you can say:",
		SuggestedActions: ExampleCommands,
	}, nil
}

// ==================== 共用 ====================

// resolveItem 先以名稱包含查詢，找不到再以五段式比對整個庫存；
// location 不為空時優先選擇位於該位置的品項
func (d *Dispatcher) resolveItem(ctx context.Context, userID, name, location string) (*Item, MatchResult, error) {
	found, err := d.store.FindItemsByName(ctx, userID, name)
	if err != nil {
		return nil, MatchResult{}, fmt.Errorf("find items by name: %w", err)
	}
	if len(found) > 0 {
		candidates := preferLocation(found, location)
		match := FindBestMatch(name, candidates)
		if !match.Matched() {
			match = MatchResult{Item: &candidates[0], MatchType: MatchWord, Confidence: wordConfidence}
		}
		return match.Item, match, nil
	}

	items, err := d.store.ListItems(ctx, userID)
	if err != nil {
		return nil, MatchResult{}, fmt.Errorf("list items: %w", err)
	}
	match := FindBestMatch(name, preferLocation(items, location))
	return match.Item, match, nil
}

// preferLocation 位於指定位置的品項排在前面
func preferLocation(items []Item, location string) []Item {
	if location == "" {
		return items
	}
	ordered := make([]Item, 0, len(items))
	var rest []Item
	for _, item := range items {
		if strings.EqualFold(item.LocationName, location) {
			ordered = append(ordered, item)
		} else {
			rest = append(rest, item)
		}
	}
	return append(ordered, rest...)
}

func filterByLocation(items []Item, location string) []Item {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.EqualFold(item.LocationName, location) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func itemNames(params command.Parameters) []string {
	names := make([]string, 0, len(params.Items))
	for _, item := range params.Items {
		names = append(names, item.Name)
	}
	if len(names) == 0 && params.ItemName != "" {
		names = append(names, params.ItemName)
	}
	return names
}

func namesOf(items []Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func pantryNames(items []Item) []string {
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item.Name)
		if !seen[key] {
			seen[key] = true
			names = append(names, item.Name)
		}
	}
	return names
}

func describeExpiration(item Item, today time.Time) string {
	if item.ExpirationDate == nil {
		return fmt.Sprintf("%s has no expiration date.", item.Name)
	}
	date := item.ExpirationDate.Format("2006-01-02")
	days := DaysLeft(item, today)
	switch {
	case days < 0:
		return fmt.Sprintf("%s expired on %s.", item.Name, date)
	case days == 0:
		return fmt.Sprintf("%s expires today.", item.Name)
	default:
		return fmt.Sprintf("%s expires on %s (in %d day%s).", item.Name, date, days, plural(days))
	}
}

// describeAmount 例如 "2 lb chicken"、"3 tomatoes"、"milk"
func describeAmount(quantity float64, unit, name string) string {
	if unit == "" && quantity == 1 {
		return name
	}
	return formatAmount(quantity, unit) + " " + name
}

func formatAmount(quantity float64, unit string) string {
	amount := strconv.FormatFloat(quantity, 'f', -1, 64)
	if unit == "" {
		return amount
	}
	return amount + " " + unit
}

// joinWords "a"、"a and b"、"a, b and c"
func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralHas(n int) string {
	if n == 1 {
		return " has"
	}
	return "s have"
}

func pluralVerb(n int) string {
	if n == 1 {
		return " is"
	}
	return "s are"
}
